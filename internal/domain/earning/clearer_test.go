package earning_test

import (
	"context"
	"testing"
	"time"

	"github.com/starclip/starclip-api/internal/domain/earning"
)

func TestClearerStopTerminatesStart(t *testing.T) {
	svc, _ := newTestServices(t, 72)
	c := earning.NewClearer(svc)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	// Stop may run before Start reaches its select; the signal must not be
	// lost.
	c.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clearer kept running after Stop")
	}
}
