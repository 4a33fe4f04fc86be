package dataset

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

func writePNG(t *testing.T, path string, size int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			img.SetRGBA(x, y, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestReadManifestCSV(t *testing.T) {
	input := "left,right,label\n" +
		"a/1.png,b/2.png,1\n" +
		"/abs/3.png,c/4.png,0\n"

	pairs, err := ReadManifestCSV(strings.NewReader(input), "/data")
	if err != nil {
		t.Fatalf("ReadManifestCSV() error = %v", err)
	}

	want := []Pair{
		{Left: "/data/a/1.png", Right: "/data/b/2.png", Label: LabelSame},
		{Left: "/abs/3.png", Right: "/data/c/4.png", Label: LabelDifferent},
	}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %+v, want %+v", i, pairs[i], want[i])
		}
	}
}

func TestReadManifestCSV_EmptyPath(t *testing.T) {
	input := "left,right,label\n,b.png,1\n"
	if _, err := ReadManifestCSV(strings.NewReader(input), ""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestReadLFWPairs(t *testing.T) {
	input := "10\t300\n" +
		"Abel_Pacheco\t1\t4\n" +
		"Abdel_Madi_Shabneh\t1\tDean_Barker\t1\n" +
		"\n"

	pairs, err := ReadLFWPairs(strings.NewReader(input), "/lfw")
	if err != nil {
		t.Fatalf("ReadLFWPairs() error = %v", err)
	}

	want := []Pair{
		{
			Left:  "/lfw/Abel_Pacheco/Abel_Pacheco_0001.jpg",
			Right: "/lfw/Abel_Pacheco/Abel_Pacheco_0004.jpg",
			Label: LabelSame,
		},
		{
			Left:  "/lfw/Abdel_Madi_Shabneh/Abdel_Madi_Shabneh_0001.jpg",
			Right: "/lfw/Dean_Barker/Dean_Barker_0001.jpg",
			Label: LabelDifferent,
		},
	}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %+v, want %+v", i, pairs[i], want[i])
		}
	}
}

func TestReadLFWPairs_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong field count", "1\nname 1\n"},
		{"not a number", "1\nname one 2\n"},
		{"zero index", "1\nname 0 2\n"},
		{"missing second number", "1\nAnn 1 Bob Smith\n"},
		{"number inside name", "1\nAnn 1 2 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLFWPairs(strings.NewReader(tt.input), "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("error %q does not name the line", err)
			}
		})
	}
}

func TestLoadSample(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left.png")
	right := filepath.Join(dir, "right.png")
	writePNG(t, left, 250, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	writePNG(t, right, 250, color.RGBA{R: 40, G: 50, B: 60, A: 255})

	sample, err := LoadSample(left, right)
	if err != nil {
		t.Fatalf("LoadSample() error = %v", err)
	}

	shape := sample.Shape()
	if shape[0] != 6 || shape[1] != 250 || shape[2] != 250 {
		t.Fatalf("shape = %v, want [6 250 250]", shape)
	}
	want := []uint8{10, 20, 30, 40, 50, 60}
	for c, v := range want {
		if got := sample.At(c, 125, 17); got != v {
			t.Errorf("channel %d = %d, want %d", c, got, v)
		}
	}
}

func TestLoadSample_WrongSize(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left.png")
	right := filepath.Join(dir, "right.png")
	writePNG(t, left, 250, color.RGBA{A: 255})
	writePNG(t, right, 200, color.RGBA{A: 255})

	_, err := LoadSample(left, right)
	if !errors.Is(err, preprocess.ErrShape) {
		t.Errorf("LoadSample() error = %v, want ErrShape", err)
	}
}

func TestLoadSample_MissingFile(t *testing.T) {
	if _, err := LoadSample("/nonexistent/a.png", "/nonexistent/b.png"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_KeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var pairs []Pair
	for i := range 5 {
		p := filepath.Join(dir, "img", string(rune('a'+i))+".png")
		writePNG(t, p, 250, color.RGBA{R: uint8(i * 10), A: 255})
		pairs = append(pairs, Pair{Left: p, Right: p, Label: preprocess.Label(i % 2)})
	}

	var (
		mu    sync.Mutex
		calls int
	)
	split, err := Load(context.Background(), pairs, LoadOptions{Workers: 3, Progress: func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(split.Samples) != 5 || len(split.Labels) != 5 {
		t.Fatalf("got %d samples / %d labels, want 5 / 5", len(split.Samples), len(split.Labels))
	}
	for i := range 5 {
		if got := split.Samples[i].At(0, 0, 0); got != uint8(i*10) {
			t.Errorf("sample %d red = %d, want %d", i, got, i*10)
		}
		if split.Labels[i] != preprocess.Label(i%2) {
			t.Errorf("label %d = %d, want %d", i, split.Labels[i], i%2)
		}
	}
	if calls != 5 {
		t.Errorf("progress called %d times, want 5", calls)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, []Pair{{Left: "x", Right: "y"}}, LoadOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	split, err := Load(context.Background(), nil, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(split.Samples) != 0 || len(split.Labels) != 0 {
		t.Errorf("expected empty split, got %d samples", len(split.Samples))
	}
}
