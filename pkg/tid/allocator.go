// Package tid allocates the integer identities written to the t_id columns
// of the transfer schema, and their OID text form.
package tid

import (
	"fmt"
	"regexp"
	"sync"
)

// Key identifies one logical object materialised into one target class.
// Base is the root of the source inheritance chain so all subclass rows of
// an object share a key. ForClass separates fan out targets of one row.
type Key struct {
	Base     string
	ID       string
	ForClass string
}

// Identified is a source row that can be bound to a key.
type Identified interface {
	Base() string
	ID() string
}

// Allocator hands out TIDs for one run. The zero value is not usable; use New.
type Allocator struct {
	mu       sync.Mutex
	next     int64
	bindings map[Key]int64
}

func New() *Allocator {
	return &Allocator{bindings: map[Key]int64{}}
}

// For returns the TID bound to row, allocating the next one on first use.
func (a *Allocator) For(row Identified, forClass string) int64 {
	return a.ForKey(Key{Base: row.Base(), ID: row.ID(), ForClass: forClass})
}

// ForID is For for a row known only by its base table and id.
func (a *Allocator) ForID(base, id, forClass string) int64 {
	return a.ForKey(Key{Base: base, ID: id, ForClass: forClass})
}

func (a *Allocator) ForKey(key Key) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if tid, ok := a.bindings[key]; ok {
		return tid
	}
	tid := a.next
	a.next++
	a.bindings[key] = tid
	return tid
}

// Lookup returns the TID of key without allocating.
func (a *Allocator) Lookup(key Key) (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tid, ok := a.bindings[key]
	return tid, ok
}

// Next allocates a TID that is not bound to any key.
func (a *Allocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	tid := a.next
	a.next++
	return tid
}

// Len returns the number of bound keys.
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bindings)
}

var oidPattern = regexp.MustCompile(`^ch[0-9]{14}$`)

// OID returns the 16 character text form of tid.
func OID(tid int64) string {
	return fmt.Sprintf("ch%014d", tid)
}

// IsOID reports whether s has the form produced by OID.
func IsOID(s string) bool {
	return oidPattern.MatchString(s)
}

var standardOID = regexp.MustCompile(`^[a-zA-Z]{2}[a-zA-Z0-9]{14}$`)

// IsStandardOID reports whether s is a valid 16 character object id with a
// two letter prefix, as kept verbatim on export.
func IsStandardOID(s string) bool {
	return standardOID.MatchString(s)
}
