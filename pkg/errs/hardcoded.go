package errs

import "fmt"

// Hardcoded operator messages for failures that must render identically on
// every run. The suspension handler uses these verbatim instead of asking
// a model for analysis.
var hardcodedMessages = map[Code]string{
	ErrOllamaUnavailable: "Ollama is not running. Start Ollama with: ollama serve",
	ErrFileSystemAccess:  "Disk space exhausted. Free space required: %s",
}

// IsHardcoded reports whether the code has a fixed operator message.
func IsHardcoded(code Code) bool {
	_, ok := hardcodedMessages[code]
	return ok
}

// HardcodedMessage returns the fixed message for a code, formatting in any
// arguments. Codes without a fixed message fall back to the registry
// description.
func HardcodedMessage(code Code, args ...interface{}) string {
	msg, ok := hardcodedMessages[code]
	if !ok {
		if meta, found := GetMetadata(code); found {
			return meta.Description
		}
		return fmt.Sprintf("Unknown error: %s", code)
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
