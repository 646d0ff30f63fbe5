package calls

// Test-only exports for the external calls_test package, which exists so
// tests can import internal/conversations without an import cycle.
var (
	CanonicalStatus = canonicalStatus
	GreetingText    = greetingText
)

const MaxGreetingChars = maxGreetingChars
