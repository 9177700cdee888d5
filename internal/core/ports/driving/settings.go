package driving

// Settings reads and writes persisted configuration by dot-notation key.
// driven.ConfigStore satisfies it.
type Settings interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
	Path() string
}
