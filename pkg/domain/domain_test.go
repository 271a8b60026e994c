package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestExecutionStatus(t *testing.T) {
	asset := ResultAsset{Href: "s3://bucket/out.json", MediaType: "application/json"}
	tests := []struct {
		name string
		exec Execution
		want ExecutionStatus
	}{
		{"no reason no results", Execution{}, StatusInProgress},
		{"reason without results", Execution{StatusReason: strPtr("OOM")}, StatusFailed},
		{"reason with results", Execution{StatusReason: strPtr("partial"), Results: []ResultAsset{asset}}, StatusFailed},
		{"empty reason still failed", Execution{StatusReason: strPtr("")}, StatusFailed},
		{"results only", Execution{Results: []ResultAsset{asset}}, StatusSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.exec.Status())
		})
	}
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"zero value", PageRequest{}, PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{"negative", PageRequest{Page: -3, PageSize: -1}, PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{"too large", PageRequest{Page: 2, PageSize: 1000}, PageRequest{Page: 2, PageSize: MaxPageSize}},
		{"valid", PageRequest{Page: 3, PageSize: 10}, PageRequest{Page: 3, PageSize: 10}},
		{"page past int range", PageRequest{Page: math.MaxInt, PageSize: 100}, PageRequest{Page: MaxPage, PageSize: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{}.Offset())
	assert.Equal(t, 20, PageRequest{Page: 3, PageSize: 10}.Offset())

	off := PageRequest{Page: math.MaxInt64/100 + 2, PageSize: 100}.Offset()
	assert.GreaterOrEqual(t, off, 0)
	assert.LessOrEqual(t, off, math.MaxInt-MaxPageSize)
}

func TestTokenPresent(t *testing.T) {
	assert.False(t, Token("").Present())
	assert.False(t, Token("   ").Present())
	assert.True(t, Token("abc").Present())
}

func TestTokenStringMasks(t *testing.T) {
	assert.Equal(t, "****", Token("short").String())
	assert.Equal(t, "abcd...wxyz", Token("abcdefghijklmnopqrstuvwxyz").String())
}
