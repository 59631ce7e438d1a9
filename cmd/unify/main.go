package main

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/temirov/unify/internal/cli"
	"github.com/temirov/unify/internal/utils"
)

// main is the entry point for the unify command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(zapcore.InfoLevel)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(loggerInstance); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
