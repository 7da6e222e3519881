package app

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/domain"
	"github.com/rs/zerolog/log"
)

// Directory maps each address to the one connection holding it and keeps the
// ordered discovery set.
type Directory struct {
	mu      sync.Mutex
	holders map[domain.Address]core.ConnID
	public  []domain.Address
}

func NewDirectory() *Directory {
	return &Directory{
		holders: make(map[domain.Address]core.ConnID),
	}
}

// Claim binds addr to cid unless someone already holds it.
func (d *Directory) Claim(addr domain.Address, cid core.ConnID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if holder, ok := d.holders[addr]; ok {
		return fmt.Errorf("claim %q (held by %s): %w", addr, holder, domain.ErrAddressInUse)
	}
	d.holders[addr] = cid
	log.Info().Str("module", "app.directory").Str("address", string(addr)).Str("cid", string(cid)).Msg("claimed")
	return nil
}

func (d *Directory) Resolve(addr domain.Address) (core.ConnID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cid, ok := d.holders[addr]
	if !ok {
		return "", fmt.Errorf("resolve %q: %w", addr, domain.ErrAddressNotFound)
	}
	return cid, nil
}

// Release drops the binding and any discovery membership. No-op if absent.
func (d *Directory) Release(addr domain.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.holders[addr]; !ok {
		return
	}
	delete(d.holders, addr)
	d.public = slices.DeleteFunc(d.public, func(a domain.Address) bool { return a == addr })
	log.Info().Str("module", "app.directory").Str("address", string(addr)).Msg("released")
}

// SetPublic adds or removes addr from the discovery set. Re-listing an
// already public address keeps its position.
func (d *Directory) SetPublic(addr domain.Address, visible bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.holders[addr]; !ok {
		return fmt.Errorf("set public %q: %w", addr, domain.ErrAddressNotFound)
	}
	listed := slices.Contains(d.public, addr)
	switch {
	case visible && !listed:
		d.public = append(d.public, addr)
	case !visible && listed:
		d.public = slices.DeleteFunc(d.public, func(a domain.Address) bool { return a == addr })
	}
	return nil
}

// ListPublic is a point-in-time copy in insertion order.
func (d *Directory) ListPublic() []domain.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.public)
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.holders)
}
