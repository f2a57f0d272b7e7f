package models

import (
	"errors"
	"fmt"
	"strconv"
)

// Denominations is the canonical, strictly descending list of currency units.
// Every count vector in the system has one entry per denomination in this order.
type Denominations []int

// DefaultDenominations is the INR set used when no deployment override is given.
var DefaultDenominations = Denominations{2000, 500, 200, 100, 50, 20, 10, 5, 2, 1}

// ErrInvalidAmount is returned by Greedy for amounts it cannot split.
var ErrInvalidAmount = errors.New("amount must be a non-negative integer")

func (d Denominations) Len() int { return len(d) }

// Validate checks the list is non-empty, positive and strictly descending.
func (d Denominations) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("denominations must not be empty")
	}
	for i, v := range d {
		if v <= 0 {
			return fmt.Errorf("denomination %d must be positive", v)
		}
		if i > 0 && v >= d[i-1] {
			return fmt.Errorf("denominations must be strictly descending, got %d after %d", v, d[i-1])
		}
	}
	return nil
}

// Index returns the position of value or -1.
func (d Denominations) Index(value int) int {
	for i, v := range d {
		if v == value {
			return i
		}
	}
	return -1
}

// Keys renders denominations as the string keys used in breakdown maps.
func (d Denominations) Keys() []string {
	out := make([]string, len(d))
	for i, v := range d {
		out[i] = strconv.Itoa(v)
	}
	return out
}

// Value returns sum(count × denomination). counts must be aligned with d.
func (d Denominations) Value(counts []int) int {
	total := 0
	for i, v := range d {
		if i < len(counts) {
			total += v * counts[i]
		}
	}
	return total
}

// Greedy splits amount largest-first. remainder is non-zero only when the
// smallest denomination does not divide the leftover.
func (d Denominations) Greedy(amount int) (inv Inventory, remainder int, err error) {
	if amount < 0 {
		return nil, 0, ErrInvalidAmount
	}
	inv = make(Inventory, len(d))
	left := amount
	for i, v := range d {
		inv[i] = DenominationCount{Value: v, Count: left / v}
		left %= v
	}
	return inv, left, nil
}

// DenominationCount is one line of an inventory.
type DenominationCount struct {
	Value int `json:"denomination"`
	Count int `json:"count"`
}

// Inventory is an ordered denomination → count mapping. Zero counts are kept.
type Inventory []DenominationCount

// Total is the monetary value of the inventory.
func (inv Inventory) Total() int {
	total := 0
	for _, c := range inv {
		total += c.Value * c.Count
	}
	return total
}

// Map returns the inventory keyed by denomination.
func (inv Inventory) Map() map[int]int {
	out := make(map[int]int, len(inv))
	for _, c := range inv {
		out[c.Value] = c.Count
	}
	return out
}

// Counts returns the counts in inventory order.
func (inv Inventory) Counts() []int {
	out := make([]int, len(inv))
	for i, c := range inv {
		out[i] = c.Count
	}
	return out
}
