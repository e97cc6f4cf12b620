package recovery

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecoverToError(t *testing.T) {
	err := RecoverToError(discard(), "load", func() error {
		panic("driver exploded")
	})
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("RecoverToError() = %v, want ErrPanic", err)
	}

	boom := errors.New("boom")
	if err := RecoverToError(discard(), "load", func() error { return boom }); err != boom {
		t.Errorf("plain errors must pass through, got %v", err)
	}
}

func TestRecoverToValue(t *testing.T) {
	n, err := RecoverToValue(discard(), "count", func() (int, error) {
		panic("nope")
	})
	if n != 0 || !errors.Is(err, ErrPanic) {
		t.Errorf("RecoverToValue() = (%d, %v)", n, err)
	}

	n, err = RecoverToValue(discard(), "count", func() (int, error) { return 7, nil })
	if n != 7 || err != nil {
		t.Errorf("RecoverToValue() = (%d, %v), want (7, nil)", n, err)
	}
}

func TestRecover(t *testing.T) {
	ran := false
	Recover(discard(), "cleanup", func() {
		ran = true
		panic("ignored")
	})
	if !ran {
		t.Error("function was not called")
	}
}
