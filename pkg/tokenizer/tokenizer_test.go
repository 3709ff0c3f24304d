package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/pkg/tokenizer"
)

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, tokenizer.CountTokens(""))
	assert.Equal(t, 0, tokenizer.CountTokens("   "))
	assert.Equal(t, 1, tokenizer.CountTokens("hello"))
	assert.Equal(t, 4, tokenizer.CountTokens("one two three"))
}

func TestCountAll(t *testing.T) {
	assert.Equal(t, 2, tokenizer.CountAll("hello", "world"))
	assert.Equal(t, 0, tokenizer.CountAll())
}
