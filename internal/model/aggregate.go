package model

import "sort"

// Aggregate maps a classification key to a count for one kind and one window.
type Aggregate map[string]int

func NewAggregate() Aggregate {
	return make(Aggregate)
}

// Add ignores negative increments so counts never go below zero.
func (a Aggregate) Add(key string, n int) {
	if n < 0 {
		return
	}
	a[key] += n
}

func (a Aggregate) Inc(key string) {
	a[key]++
}

// Merge sums other into a.
func (a Aggregate) Merge(other Aggregate) {
	for k, v := range other {
		a.Add(k, v)
	}
}

func (a Aggregate) Clone() Aggregate {
	c := make(Aggregate, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func (a Aggregate) Total() int {
	total := 0
	for _, v := range a {
		total += v
	}
	return total
}

type Entry struct {
	Key   string
	Count int
}

// Ranked orders by count descending, then key ascending.
func (a Aggregate) Ranked() []Entry {
	entries := make([]Entry, 0, len(a))
	for k, v := range a {
		entries = append(entries, Entry{Key: k, Count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Top returns at most n ranked entries, all of them when n <= 0.
func (a Aggregate) Top(n int) []Entry {
	ranked := a.Ranked()
	if n > 0 && len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}
