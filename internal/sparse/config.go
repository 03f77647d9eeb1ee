package sparse

import "github.com/helixml/kodit/internal/tokenizer"

// Config holds the BM25 sparse encoder's tunable parameters.
type Config struct {
	K1          float64        `json:"k1"`
	B           float64        `json:"b"`
	MinDF       int            `json:"minDF"`
	MaxDFRatio  float64        `json:"maxDFRatio"`
	SublinearTF bool           `json:"sublinearTF"`
	TokenMode   tokenizer.Mode `json:"tokenMode"`
}

// DefaultConfig returns the encoder's documented defaults.
func DefaultConfig() Config {
	return Config{
		K1:          1.2,
		B:           0.75,
		MinDF:       1,
		MaxDFRatio:  0.85,
		SublinearTF: false,
		TokenMode:   tokenizer.ModeCode,
	}
}

// ConfigOption is a functional option for Config.
type ConfigOption func(*Config)

// WithK1 sets the term-frequency saturation parameter.
func WithK1(k1 float64) ConfigOption { return func(c *Config) { c.K1 = k1 } }

// WithB sets the length-normalization strength.
func WithB(b float64) ConfigOption { return func(c *Config) { c.B = b } }

// WithMinDF sets the minimum document frequency a term must reach to
// enter the vocabulary.
func WithMinDF(minDF int) ConfigOption { return func(c *Config) { c.MinDF = minDF } }

// WithMaxDFRatio sets the maximum document-frequency ratio a term may
// reach before it is dropped as too common.
func WithMaxDFRatio(ratio float64) ConfigOption { return func(c *Config) { c.MaxDFRatio = ratio } }

// WithSublinearTF enables the 1+ln(tf) term-frequency transform.
func WithSublinearTF(sublinear bool) ConfigOption {
	return func(c *Config) { c.SublinearTF = sublinear }
}

// WithTokenMode sets the tokenizer mode.
func WithTokenMode(mode tokenizer.Mode) ConfigOption {
	return func(c *Config) { c.TokenMode = mode }
}

// NewConfig builds a Config starting from the documented defaults.
func NewConfig(opts ...ConfigOption) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
