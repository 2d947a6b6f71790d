package sqllit

import (
	"testing"

	"github.com/stretchr/testify/require"

	wire "github.com/splitgraph/convergence"
)

func TestParseLiteralSelect(t *testing.T) {
	statements, err := (Parser{}).Parse("SELECT 1, 'hello', 3.5, null")
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0].(*Statement)
	require.Equal(t, KindLiteralSelect, stmt.Kind)
	require.Len(t, stmt.Literals, 4)

	require.Equal(t, wire.Int8, stmt.Literals[0].Type)
	require.Equal(t, "1", stmt.Literals[0].Text)

	require.Equal(t, wire.Text, stmt.Literals[1].Type)
	require.Equal(t, "hello", stmt.Literals[1].Text)

	require.Equal(t, wire.Float8, stmt.Literals[2].Type)

	require.True(t, stmt.Literals[3].Null)
}

func TestParseTableSelect(t *testing.T) {
	statements, err := (Parser{}).Parse("SELECT id, message FROM greeting")
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0].(*Statement)
	require.Equal(t, KindTableSelect, stmt.Kind)
	require.Equal(t, []string{"id", "message"}, stmt.Columns)
	require.Equal(t, "greeting", stmt.Table)
}

func TestParseTableSelectStar(t *testing.T) {
	statements, err := (Parser{}).Parse("select * from greeting")
	require.NoError(t, err)
	require.Nil(t, statements[0].(*Statement).Columns)
}

func TestParseMultipleStatements(t *testing.T) {
	statements, err := (Parser{}).Parse("SELECT 1; SELECT 2")
	require.NoError(t, err)
	require.Len(t, statements, 2)
}

func TestParseEmptyQueryYieldsNoStatements(t *testing.T) {
	statements, err := (Parser{}).Parse("   ")
	require.NoError(t, err)
	require.Empty(t, statements)
}

func TestParseRejectsNonSelect(t *testing.T) {
	_, err := (Parser{}).Parse("DELETE FROM greeting")
	require.Error(t, err)
}
