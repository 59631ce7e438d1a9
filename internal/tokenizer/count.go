package tokenizer

import (
	"errors"
)

// CountText estimates tokens for already decoded section content.
func CountText(counter Counter, text string) (int, error) {
	if counter == nil {
		return 0, errors.New("nil tokenizer counter")
	}
	return counter.CountString(text)
}
