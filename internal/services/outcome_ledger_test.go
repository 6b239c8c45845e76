package services

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestOutcomeLedgerFailureWins(t *testing.T) {
	l := NewOutcomeLedger()
	l.Succeed("c1")
	l.Fail("c1", "boom")
	l.Succeed("c1")
	l.Fail("c1", "second")

	if got, _ := l.Get("c1"); got != "boom" {
		t.Fatalf("c1: want=boom got=%s", got)
	}
	if l.AllFailed() != true {
		t.Fatalf("AllFailed: want=true")
	}
	l.Succeed("c2")
	if l.AllFailed() {
		t.Fatalf("AllFailed: want=false with a success")
	}
	if NewOutcomeLedger().AllFailed() {
		t.Fatalf("empty ledger is not all failed")
	}
}

func TestOutcomeLedgerConcurrentAndJSON(t *testing.T) {
	l := NewOutcomeLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				l.Succeed("k")
			} else {
				l.Fail("k", "bad")
			}
		}(i)
	}
	wg.Wait()
	if got, _ := l.Get("k"); got != "bad" {
		t.Fatalf("k: want=bad got=%s", got)
	}

	raw, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"k":"bad"}` {
		t.Fatalf("json: got=%s", raw)
	}
}
