// Package dataset reads face-pair manifests and decodes the referenced
// images into raw preprocessing samples.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/kozaktomas/in-your-face/internal/preprocess"
)

// Label values produced by the manifest readers.
const (
	LabelDifferent preprocess.Label = 0
	LabelSame      preprocess.Label = 1
)

// Pair references two face images and whether they show the same person.
type Pair struct {
	Left  string
	Right string
	Label preprocess.Label
}

// Path returns the image of one face (0 = left, 1 = right).
func (p Pair) Path(face int) string {
	if face == 0 {
		return p.Left
	}
	return p.Right
}

type csvPair struct {
	Left  string `csv:"left"`
	Right string `csv:"right"`
	Label int    `csv:"label"`
}

// ReadManifestCSV parses a CSV manifest with the header "left,right,label".
// Relative image paths are resolved against root.
func ReadManifestCSV(r io.Reader, root string) ([]Pair, error) {
	var rows []csvPair
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	pairs := make([]Pair, 0, len(rows))
	for i, row := range rows {
		if row.Left == "" || row.Right == "" {
			return nil, fmt.Errorf("manifest row %d: empty image path", i+1)
		}
		pairs = append(pairs, Pair{
			Left:  resolve(root, row.Left),
			Right: resolve(root, row.Right),
			Label: preprocess.Label(row.Label),
		})
	}
	return pairs, nil
}

// ReadLFWPairs parses the LFW pairs.txt format. The first line is a header
// and is skipped. Lines "name n1 n2" are same-person pairs, lines
// "name1 n1 name2 n2" are different-person pairs. Names may contain spaces
// in hand-written lists. Images live at root/<name>/<name>_<NNNN>.jpg.
func ReadLFWPairs(r io.Reader, root string) ([]Pair, error) {
	scanner := bufio.NewScanner(r)
	var pairs []Pair
	line := 0

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if line == 1 || len(fields) == 0 {
			continue
		}

		pair, err := parseLFWLine(fields, root)
		if err != nil {
			return nil, fmt.Errorf("pairs line %d: %w", line, err)
		}
		pairs = append(pairs, pair)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pairs: %w", err)
	}
	return pairs, nil
}

// parseLFWLine reads a pair from the right: two trailing numbers make a
// same-person pair, otherwise the first number ends the left name.
func parseLFWLine(fields []string, root string) (Pair, error) {
	n := len(fields)
	if n < 3 {
		return Pair{}, fmt.Errorf("expected a name and two image numbers, got %d fields", n)
	}

	if isNumber(fields[n-2]) {
		if slices.ContainsFunc(fields[:n-2], isNumber) {
			return Pair{}, fmt.Errorf("expected a name before %q, got %q", fields[n-2], strings.Join(fields, " "))
		}
		name := strings.Join(fields[:n-2], " ")
		n1, n2, err := parseIndexes(fields[n-2], fields[n-1])
		if err != nil {
			return Pair{}, err
		}
		return Pair{
			Left:  lfwPath(root, name, n1),
			Right: lfwPath(root, name, n2),
			Label: LabelSame,
		}, nil
	}

	split := slices.IndexFunc(fields, isNumber)
	if split < 1 || split+1 >= n-1 || slices.ContainsFunc(fields[split+1:n-1], isNumber) {
		return Pair{}, fmt.Errorf("expected \"name n1 name n2\", got %q", strings.Join(fields, " "))
	}
	n1, n2, err := parseIndexes(fields[split], fields[n-1])
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Left:  lfwPath(root, strings.Join(fields[:split], " "), n1),
		Right: lfwPath(root, strings.Join(fields[split+1:n-1], " "), n2),
		Label: LabelDifferent,
	}, nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func parseIndexes(a, b string) (int, int, error) {
	n1, err1 := strconv.Atoi(a)
	n2, err2 := strconv.Atoi(b)
	if err := errors.Join(err1, err2); err != nil {
		return 0, 0, fmt.Errorf("invalid image number: %w", err)
	}
	if n1 < 1 || n2 < 1 {
		return 0, 0, fmt.Errorf("image numbers start at 1, got %d and %d", n1, n2)
	}
	return n1, n2, nil
}

func lfwPath(root, name string, n int) string {
	name = PersonDir(name)
	return filepath.Join(root, name, fmt.Sprintf("%s_%04d.jpg", name, n))
}

func resolve(root, path string) string {
	if root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
