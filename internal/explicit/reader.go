// Package explicit reads explicit-state models from the textual .tra/.lab
// file pair: one transition per line and a declared labeling. Only
// deterministic models have a file representation here.
package explicit

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/quotientlab/quotient/internal/model"
)

type transition struct {
	from, to int
	value    float64
}

// ReadModel reads a deterministic model of the given kind from a .tra
// transition file and a .lab label file.
func ReadModel(kind model.Kind, traPath, labPath string) (*model.Model[float64], error) {
	if !kind.Deterministic() {
		return nil, fmt.Errorf("explicit files describe deterministic models, not %s", kind)
	}
	transitions, states, err := readTra(traPath)
	if err != nil {
		return nil, err
	}
	labeling, err := readLab(labPath, states)
	if err != nil {
		return nil, err
	}

	b := model.NewMatrixBuilder[float64](states)
	sort.SliceStable(transitions, func(i, j int) bool {
		if transitions[i].from != transitions[j].from {
			return transitions[i].from < transitions[j].from
		}
		return transitions[i].to < transitions[j].to
	})
	next := 0
	for s := 0; s < states; s++ {
		var row []model.Entry[float64]
		for next < len(transitions) && transitions[next].from == s {
			row = append(row, model.Entry[float64]{Column: transitions[next].to, Value: transitions[next].value})
			next++
		}
		b.AddRow(row...)
	}
	return model.New(kind, b.Build(), labeling), nil
}

// readTra parses a transition file: an optional `states transitions` header
// line followed by `from to value` lines. Blank lines are skipped. The state
// count is the header's when present, otherwise the largest mentioned state
// plus one.
func readTra(path string) ([]transition, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var transitions []transition
	states := 0
	lineno := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineno++
		fields := strings.Fields(scanner.Text())
		switch len(fields) {
		case 0:
			continue
		case 2:
			if lineno != 1 {
				return nil, 0, fmt.Errorf("%s:%d: header line after transitions", path, lineno)
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, 0, fmt.Errorf("%s:%d: bad state count: %w", path, lineno, err)
			}
			states = n
		case 3:
			from, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, 0, fmt.Errorf("%s:%d: bad source state: %w", path, lineno, err)
			}
			to, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, 0, fmt.Errorf("%s:%d: bad target state: %w", path, lineno, err)
			}
			value, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, 0, fmt.Errorf("%s:%d: bad transition value: %w", path, lineno, err)
			}
			transitions = append(transitions, transition{from: from, to: to, value: value})
			if from >= states {
				states = from + 1
			}
			if to >= states {
				states = to + 1
			}
		default:
			return nil, 0, fmt.Errorf("%s:%d: expected `from to value`, got %d fields", path, lineno, len(fields))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	if len(transitions) == 0 {
		return nil, 0, fmt.Errorf("%s: no transitions", path)
	}
	return transitions, states, nil
}
