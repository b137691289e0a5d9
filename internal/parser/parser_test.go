package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestParseMissingRootIsFatal(t *testing.T) {
	_, _, err := Parse(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputNotFound))
	var ie *InputError
	assert.True(t, errors.As(err, &ie))
}

func TestParseRootIsFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"items.xml": "<Items/>"})
	_, _, err := Parse(context.Background(), filepath.Join(dir, "items.xml"), Options{})
	assert.ErrorIs(t, err, ErrInputNotFound)
}

func TestParseIsolatesBadDocuments(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"items.xml":      `<Items><Item id="item_sword"/></Items>`,
		"broken.xml":     `<Items><Item id="x">`,
		"empty.xml":      ``,
		"notes.txt":      `ignored`,
		"sub/skills.xml": `<Skills><Skill id="OneHanded"/></Skills>`,
	})
	c, diags, err := Parse(context.Background(), dir, Options{Workers: 2})
	require.NoError(t, err)
	assert.Empty(t, diags.Warnings)
	assert.Equal(t, []string{"broken", "empty", "items", "skills"}, c.IDs())

	broken, ok := c.Get("broken")
	require.True(t, ok)
	var pe *ParseError
	assert.True(t, errors.As(broken.Err, &pe))
	_, qerr := broken.Query("//Item")
	assert.Error(t, qerr)

	empty, _ := c.Get("empty")
	assert.Error(t, empty.Err)

	items, _ := c.Get("items")
	require.NoError(t, items.Err)
	ids, err := items.AttrValues("id")
	require.NoError(t, err)
	assert.Equal(t, []string{"item_sword"}, ids)
}

func TestEnumerateIncludeExclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.xml":          "<A/>",
		"Backup/b.xml":   "<B/>",
		".git/c.xml":     "<C/>",
		"nested/d/d.xml": "<D/>",
	})
	paths, err := Enumerate(dir, Options{Exclude: []string{"Backup/**"}})
	require.NoError(t, err)
	var ids []string
	for _, p := range paths {
		ids = append(ids, BaseID(p))
	}
	assert.Equal(t, []string{"a", "d"}, ids)

	_, err = Enumerate(dir, Options{Include: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestDuplicateIDsKeepFirst(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a/items.xml": `<Items/>`,
		"b/items.xml": `<Items/>`,
	})
	c, diags, err := Parse(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.Len(t, c.Docs, 1)
	assert.Equal(t, filepath.Join(dir, "a", "items.xml"), c.Docs[0].Path)
	require.Len(t, diags.Warnings, 1)
	assert.Contains(t, diags.Warnings[0], "duplicate document id")
}

func TestParseCancelled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.xml": "<A/>"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Parse(ctx, dir, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAttrIgnoresPrefixAndLabelFallsBack(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"x.xml": `<Root xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:noNamespaceSchemaLocation="foo.xsd">
  <Outer id="outer"><Inner item="item_axe"/></Outer>
  <Lonely item="item_bow"/>
</Root>`,
	})
	d := ParseFile(filepath.Join(dir, "x.xml"))
	require.NoError(t, d.Err)
	assert.Equal(t, "foo.xsd", Attr(d.Root, "noNamespaceSchemaLocation"))

	nodes, err := d.Elements("item")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "outer", ElementLabel(nodes[0]))
	assert.Equal(t, "Unknown", ElementLabel(nodes[1]))

	none, err := d.Query("//Missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
