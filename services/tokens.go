package services

import (
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens with a tiktoken encoding
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter loads the named encoding, e.g. cl100k_base
func NewTokenCounter(name string) (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get encoding %s", name)
	}
	return &TokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text
func (c *TokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}
