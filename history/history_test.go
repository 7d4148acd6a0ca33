package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	j, err := Open(filepath.Join(t.TempDir(), "sub", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []Run{
		{StartedAt: base, Input: "a.mp3", Output: "a_harmony.mp3", Key: "C major", KeyConfidence: 0.8,
			Harmonies: []string{"third", "fifth"}, Shifter: "rubberband", Elapsed: 1500 * time.Millisecond, Status: "ok"},
		{StartedAt: base.Add(time.Minute), Input: "b.wav", Status: "failed", FailedStage: "separate", Error: "demucs missing"},
	}
	for _, r := range runs {
		if _, err := j.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d runs, want 2", len(got))
	}
	if got[0].Input != "b.wav" || got[0].FailedStage != "separate" || got[0].Harmonies != nil {
		t.Errorf("newest run = %+v", got[0])
	}
	if got[1].Elapsed != 1500*time.Millisecond || len(got[1].Harmonies) != 2 || got[1].Harmonies[1] != "fifth" {
		t.Errorf("oldest run = %+v", got[1])
	}
	if !got[1].StartedAt.Equal(base) {
		t.Errorf("started at %v, want %v", got[1].StartedAt, base)
	}

	limited, err := j.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d runs", len(limited))
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Record(ctx, Run{Input: "x.flac", Status: "ok"}); err != nil {
		t.Fatal(err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	got, err := j.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Input != "x.flac" {
		t.Errorf("runs after reopen = %+v", got)
	}
}
