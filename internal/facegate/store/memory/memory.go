// Package memory provides in-process stores for tests and the "memory" store
// driver. Nothing here survives a restart.
package memory

import "github.com/BrandonDHaskell/facegate/internal/facegate/types"

func cloneIdentity(id types.Identity) types.Identity {
	id.Vector = id.Vector.Clone()
	return id
}
