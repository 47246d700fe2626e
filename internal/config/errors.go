package config

import "fmt"

// MissingKeyError reports a required key absent from the configuration source.
type MissingKeyError struct {
	Key    string
	Source Source
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("config key %s is not set (source: %s)", e.Key, e.Source)
}

type InvalidValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("config key %s has invalid value %q: %s", e.Key, e.Value, e.Reason)
}
