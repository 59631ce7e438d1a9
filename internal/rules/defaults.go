package rules

// DefaultExcludedDirectories lists dependency, build, VCS and cache directory names.
// A path segment equal to, or starting with, one of these names is pruned.
var DefaultExcludedDirectories = []string{
	".git",
	".hg",
	".svn",
	"node_modules",
	"bower_components",
	"venv",
	".venv",
	"__pycache__",
	".pytest_cache",
	".mypy_cache",
	".tox",
	".idea",
	".vscode",
	".next",
	".cache",
	"dist",
	"build",
	"coverage",
	"target",
}

// DefaultExcludedFiles lists lockfiles, environment files and generated configuration.
var DefaultExcludedFiles = []string{
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"poetry.lock",
	"Pipfile.lock",
	"Cargo.lock",
	"composer.lock",
	"Gemfile.lock",
	"go.sum",
	".env",
	".env.local",
	".env.development",
	".env.production",
	".DS_Store",
	"Thumbs.db",
}

// DefaultExcludedExtensions lists compiled artifacts, binaries, media and archives.
var DefaultExcludedExtensions = []string{
	".pyc", ".pyo", ".pyd", ".class", ".o", ".obj", ".so", ".dll", ".dylib", ".exe", ".a", ".lib",
	".jar", ".war", ".wasm",
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".svg", ".webp", ".tiff",
	".mp3", ".mp4", ".wav", ".avi", ".mov", ".mkv", ".flac",
	".pdf", ".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar",
	".ttf", ".otf", ".woff", ".woff2", ".eot",
	".min.js", ".min.css", ".map",
}

// DefaultIncludedExtensions lists source and text extensions eligible for concatenation.
var DefaultIncludedExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".kt", ".scala", ".go", ".rs", ".rb", ".php",
	".c", ".h", ".cpp", ".hpp", ".cc", ".cs", ".swift", ".m",
	".sh", ".bash", ".sql", ".html", ".css", ".scss", ".vue", ".svelte",
	".json", ".yaml", ".yml", ".toml", ".xml", ".ini", ".cfg",
	".md", ".rst", ".txt",
}
