package cache

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func TestMemoryLockoutStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryLockoutStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	const key = "farmer@example.com"

	for i := 1; i < 3; i++ {
		st, err := s.RecordFailure(ctx, key, now, 3, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if st.FailedCount != i || st.Locked(now) {
			t.Fatalf("after %d failures: %+v", i, st)
		}
	}

	st, _ := s.RecordFailure(ctx, key, now, 3, time.Minute)
	if !st.Locked(now) {
		t.Fatalf("after threshold: %+v, want locked", st)
	}
	if got, _ := s.Get(ctx, key); !got.Locked(now.Add(30 * time.Second)) {
		t.Error("Get() lost the lockout")
	}
	if got, _ := s.Get(ctx, key); got.Locked(now.Add(time.Minute)) {
		t.Error("lockout still in force after the window")
	}

	// a failure after the window starts a fresh count
	st, _ = s.RecordFailure(ctx, key, now.Add(2*time.Minute), 3, time.Minute)
	if st.FailedCount != 1 || st.Locked(now.Add(2*time.Minute)) {
		t.Errorf("after expiry: %+v", st)
	}

	if err := s.Clear(ctx, key); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, key); got.FailedCount != 0 {
		t.Errorf("Clear() left %+v", got)
	}
}

func TestParseLockout(t *testing.T) {
	until := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	cases := []struct {
		name       string
		data       map[string]string
		wantCount  int
		wantLocked bool
	}{
		{name: "empty", data: map[string]string{}},
		{name: "counting", data: map[string]string{"failed_count": "2"}, wantCount: 2},
		{name: "locked", data: map[string]string{"failed_count": "5", "locked_until": strconv.FormatInt(until.Unix(), 10)}, wantCount: 5, wantLocked: true},
		{name: "garbage", data: map[string]string{"failed_count": "x", "locked_until": "y"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := parseLockout(tc.data)
			if st.FailedCount != tc.wantCount {
				t.Errorf("FailedCount = %d, want %d", st.FailedCount, tc.wantCount)
			}
			if got := st.Locked(until.Add(-time.Minute)); got != tc.wantLocked {
				t.Errorf("Locked() = %v, want %v", got, tc.wantLocked)
			}
		})
	}
}
