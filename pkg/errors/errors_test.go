package errors

import (
	"errors"
	"testing"
)

func TestCarbonErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *CarbonError
		want string
	}{
		{"no cause", New(CodeOutOfBounds, "index 5 of 3"), "OUT_OF_BOUNDS: index 5 of 3"},
		{
			"with cause",
			Wrap(errors.New("eof"), CodeMemfileSeekFailed, "seek to offset 128"),
			"MEMFILE_SEEK_FAILED: seek to offset 128: eof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CodeAllocFailed, "x") != nil {
		t.Error("Wrap(nil, ...) should return nil")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, CodeMemfileOpenFailed, "opening archive")

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestIs(t *testing.T) {
	err := New(CodeMixedArrayTypes, "xs")
	if !Is(err, CodeMixedArrayTypes) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, CodeOutOfBounds) {
		t.Error("Is should not match a different code")
	}
	if Is(errors.New("plain"), CodeOutOfBounds) {
		t.Error("Is should not match a non-CarbonError")
	}
}

func TestCodeExtraction(t *testing.T) {
	if got := Code(New(CodeNoSuchType, "t")); got != CodeNoSuchType {
		t.Errorf("Code() = %v, want %v", got, CodeNoSuchType)
	}
	if got := Code(errors.New("plain")); got != CodeInternalInvariant {
		t.Errorf("Code() on non-CarbonError = %v, want %v", got, CodeInternalInvariant)
	}
}
