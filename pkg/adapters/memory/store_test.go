package memory_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunDocumentStoreContract(t, memory.NewStore())
}
