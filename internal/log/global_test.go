package log

import (
	"sync"
	"testing"
)

func resetDefault(t *testing.T) {
	t.Helper()
	original := process.Load()
	t.Cleanup(func() { process.Store(original) })
}

func TestSetDefaultLogger(t *testing.T) {
	resetDefault(t)

	custom := Development()
	SetDefaultLogger(custom)

	if DefaultLogger() != custom {
		t.Error("DefaultLogger did not return the installed logger")
	}
}

func TestDefaultLoggerFallback(t *testing.T) {
	resetDefault(t)
	SetDefaultLogger(nil)

	const callers = 8
	got := make([]*Logger, callers)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = DefaultLogger()
		}(i)
	}
	wg.Wait()

	if got[0] == nil {
		t.Fatal("expected a fallback logger")
	}
	for i, l := range got {
		if l != got[0] {
			t.Errorf("caller %d got a different fallback logger", i)
		}
	}
}
