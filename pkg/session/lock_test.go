package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/zxsted/dialogmanager/pkg/adapters/memory"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 1000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("conversation-%d", i)
		_ = mgr.Save(ctx, id, domain.NewConversationState(id))
		_ = mgr.Delete(ctx, id)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
