package explicit

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/quotientlab/quotient/internal/model"
)

// Label file syntax:
//
//	#DECLARATION
//	init one done
//	#END
//	0 init
//	7 one done
//
// Every label used in a row must be declared in the header.

var labLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Directive", Pattern: `#[A-Z]+`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type labFile struct {
	Declared []string  `parser:"'#DECLARATION' @Ident+ '#END'"`
	Rows     []*labRow `parser:"@@*"`
}

type labRow struct {
	State  int      `parser:"@Number"`
	Labels []string `parser:"@Ident+"`
}

var labParser = participle.MustBuild[labFile](
	participle.Lexer(labLexer),
	participle.Elide("Whitespace"),
)

// readLab parses a label file into a labeling over the given number of
// states.
func readLab(path string, states int) (*model.Labeling, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := labParser.ParseBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("parsing label file: %w", err)
	}

	labeling := model.NewLabeling(states)
	declared := make(map[string]bool, len(file.Declared))
	for _, label := range file.Declared {
		declared[label] = true
		labeling.Add(label)
	}
	for _, row := range file.Rows {
		if row.State >= states {
			return nil, fmt.Errorf("%s: state %d out of range (%d states)", path, row.State, states)
		}
		for _, label := range row.Labels {
			if !declared[label] {
				return nil, fmt.Errorf("%s: undeclared label %q on state %d", path, label, row.State)
			}
			labeling.AddToState(label, row.State)
		}
	}
	return labeling, nil
}
