package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/richtext"
)

func scalar(name string) models.FieldSchema {
	return models.FieldSchema{Name: name, Label: name, Widget: models.WidgetScalar}
}

func pageFields() []models.FieldSchema {
	return []models.FieldSchema{
		{Name: "layout", Widget: models.WidgetHidden, Default: "../layouts/Page.astro"},
		scalar("title"),
		{Name: "summary", Label: "Summary", Widget: models.WidgetText},
		{Name: "script", Label: "Script", Widget: models.WidgetCode},
		{Name: "intro", Label: "Intro", Widget: models.WidgetMarkdown},
		{Name: "seo", Label: "SEO", Widget: models.WidgetObject, Fields: []models.FieldSchema{
			scalar("description"),
			{Name: "social", Label: "Social", Widget: models.WidgetObject, Fields: []models.FieldSchema{scalar("image")}},
		}},
		{Name: "sections", Label: "Sections", Widget: models.WidgetList, Types: []models.ListVariant{
			{Name: "quote", Label: "Quote", Fields: []models.FieldSchema{
				{Name: "text", Label: "Text", Widget: models.WidgetMarkdown},
				{Name: "author", Label: "Author", Widget: models.WidgetScalar, Default: "Anonymous"},
			}},
			{Name: "image", Label: "Image", Fields: []models.FieldSchema{
				scalar("src"),
				scalar("alt"),
			}},
		}},
	}
}

func pageData() map[string]interface{} {
	return map[string]interface{}{
		"layout":  "../layouts/Custom.astro",
		"title":   "Hello",
		"summary": "two\nlines",
		"script":  "console.log(1)",
		"intro":   "<p>Welcome</p>",
		"seo": map[string]interface{}{
			"description": "desc",
			"social":      map[string]interface{}{"image": "/og.png"},
		},
		"sections": []interface{}{
			map[string]interface{}{"type": "quote", "text": "<p>q1</p>", "author": "Ann"},
			map[string]interface{}{"type": "image", "src": "/a.png", "alt": "A"},
			map[string]interface{}{"type": "quote", "text": "<p>q2</p>", "author": "Bob"},
		},
	}
}

func sectionTexts(t *testing.T, data map[string]interface{}) []string {
	t.Helper()
	var out []string
	for _, raw := range data["sections"].([]interface{}) {
		item := raw.(map[string]interface{})
		switch item["type"] {
		case "quote":
			out = append(out, item["text"].(string))
		case "image":
			out = append(out, item["src"].(string))
		default:
			out = append(out, "?")
		}
	}
	return out
}

func TestRender_SingleScalar(t *testing.T) {
	fields := []models.FieldSchema{{Name: "title", Widget: models.WidgetScalar}}
	f := Render(fields, map[string]interface{}{"title": "Hello"}, nil)

	rows := f.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, RowControl, rows[0].Kind)
	assert.Equal(t, "Hello", rows[0].Control.Text())

	assert.Equal(t, map[string]interface{}{"title": "Hello"}, f.Read())
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		fields []models.FieldSchema
		data   map[string]interface{}
		pool   richtext.Pool
	}{
		{"full page without editors", pageFields(), pageData(), nil},
		{"full page with editors", pageFields(), pageData(), richtext.NewMemoryPool()},
		{
			"typed scalars",
			[]models.FieldSchema{scalar("count"), scalar("draft"), scalar("ratio"), scalar("none")},
			map[string]interface{}{"count": 3, "draft": true, "ratio": 0.5, "none": nil},
			nil,
		},
		{
			"undeclared keys survive",
			[]models.FieldSchema{scalar("title"), {Name: "seo", Widget: models.WidgetObject, Fields: []models.FieldSchema{scalar("a")}}},
			map[string]interface{}{
				"title": "x",
				"tags":  []interface{}{"a", "b"},
				"seo":   map[string]interface{}{"a": "1", "legacy": "keep"},
			},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Render(tt.fields, tt.data, tt.pool)
			assert.Equal(t, tt.data, f.Read())
			f.Release()
		})
	}
}

func TestRead_AbsentFieldsDefault(t *testing.T) {
	f := Render(pageFields(), map[string]interface{}{}, nil)
	got := f.Read()

	assert.Equal(t, "../layouts/Page.astro", got["layout"])
	assert.Equal(t, "", got["title"])
	assert.Equal(t, map[string]interface{}{
		"description": "",
		"social":      map[string]interface{}{"image": ""},
	}, got["seo"])
	assert.Equal(t, []interface{}{}, got["sections"])
}

func TestRender_AbsentControlShowsDefault(t *testing.T) {
	fields := []models.FieldSchema{{Name: "title", Widget: models.WidgetScalar, Default: "Untitled"}}
	f := Render(fields, map[string]interface{}{}, nil)

	c, err := f.Control("title")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", c.Text())
	assert.False(t, c.Dirty())
	assert.Equal(t, map[string]interface{}{"title": "Untitled"}, f.Read())
}

func TestRead_HiddenWithoutDefaultIsOmitted(t *testing.T) {
	fields := []models.FieldSchema{{Name: "secret", Widget: models.WidgetHidden}, scalar("title")}
	f := Render(fields, map[string]interface{}{"title": "t"}, nil)

	assert.Equal(t, map[string]interface{}{"title": "t"}, f.Read())
	for _, row := range f.Rows() {
		assert.NotEqual(t, "secret", row.Path)
	}
}

func TestRead_ReflectsEdits(t *testing.T) {
	f := Render(pageFields(), pageData(), nil)

	title, err := f.Control("title")
	require.NoError(t, err)
	title.SetText("Changed")

	desc, err := f.Control("seo.social.image")
	require.NoError(t, err)
	desc.SetText("/new.png")

	author, err := f.Control("sections.2.author")
	require.NoError(t, err)
	author.SetText("Cleo")

	assert.True(t, f.Dirty())
	got := f.Read()
	assert.Equal(t, "Changed", got["title"])
	assert.Equal(t, "/new.png", got["seo"].(map[string]interface{})["social"].(map[string]interface{})["image"])
	assert.Equal(t, "Cleo", got["sections"].([]interface{})[2].(map[string]interface{})["author"])
}

func TestRead_TypedValueBecomesStringWhenEdited(t *testing.T) {
	f := Render([]models.FieldSchema{scalar("count")}, map[string]interface{}{"count": 3}, nil)
	c, err := f.Control("count")
	require.NoError(t, err)
	assert.Equal(t, "3", c.Text())

	c.SetText("4")
	assert.Equal(t, map[string]interface{}{"count": "4"}, f.Read())
}

func TestMarkdown_ReadsFromLiveEditor(t *testing.T) {
	pool := richtext.NewMemoryPool()
	f := Render(pageFields(), pageData(), pool)

	intro, err := f.Control("intro")
	require.NoError(t, err)
	require.NotEmpty(t, intro.EditorID)
	// three markdown controls: intro and two quote texts
	assert.Equal(t, 3, pool.Len())

	ed, ok := pool.Get(intro.EditorID)
	require.True(t, ok)
	ed.SetContent("<p>From editor</p>")
	assert.Equal(t, "<p>From editor</p>", f.Read()["intro"])

	// once the editor is gone the raw control value is used
	intro.Value = "<p>raw</p>"
	pool.Release(intro.EditorID)
	assert.Equal(t, "<p>raw</p>", f.Read()["intro"])

	f.Release()
	assert.Equal(t, 0, pool.Len())
}

func TestList_MoveUpThenDownRestoresOrder(t *testing.T) {
	f := Render(pageFields(), pageData(), richtext.NewMemoryPool())
	l, err := f.List("sections")
	require.NoError(t, err)

	before := sectionTexts(t, f.Read())
	require.True(t, l.MoveUp(1))
	assert.Equal(t, []string{"/a.png", "<p>q1</p>", "<p>q2</p>"}, sectionTexts(t, f.Read()))
	require.True(t, l.MoveDown(0))
	assert.Equal(t, before, sectionTexts(t, f.Read()))
}

func TestList_MoveBounds(t *testing.T) {
	f := Render(pageFields(), pageData(), nil)
	l, err := f.List("sections")
	require.NoError(t, err)

	assert.False(t, l.MoveUp(0))
	assert.False(t, l.MoveDown(2))
	assert.False(t, l.MoveUp(7))
	assert.False(t, l.MoveDown(-1))
	assert.Equal(t, []string{"<p>q1</p>", "/a.png", "<p>q2</p>"}, sectionTexts(t, f.Read()))
}

func TestList_Remove(t *testing.T) {
	for i := 0; i < 3; i++ {
		f := Render(pageFields(), pageData(), nil)
		l, err := f.List("sections")
		require.NoError(t, err)

		before := sectionTexts(t, f.Read())
		require.True(t, l.Remove(i))

		after := sectionTexts(t, f.Read())
		require.Len(t, after, len(before)-1)
		expected := append(append([]string{}, before[:i]...), before[i+1:]...)
		assert.Equal(t, expected, after)
	}

	f := Render(pageFields(), pageData(), nil)
	l, _ := f.List("sections")
	assert.False(t, l.Remove(3))
	assert.False(t, l.Remove(-1))
}

func TestList_AddVariantWithDefaults(t *testing.T) {
	data := map[string]interface{}{
		"sections": []interface{}{
			map[string]interface{}{"type": "quote", "text": "hi", "author": "A"},
		},
	}
	f := Render(pageFields(), data, nil)
	l, err := f.List("sections")
	require.NoError(t, err)

	require.NoError(t, l.Add("image"))
	sections := f.Read()["sections"].([]interface{})
	require.Len(t, sections, 2)
	assert.Equal(t, map[string]interface{}{"type": "image", "src": "", "alt": ""}, sections[1])

	require.NoError(t, l.Add("quote"))
	sections = f.Read()["sections"].([]interface{})
	assert.Equal(t, map[string]interface{}{"type": "quote", "text": "", "author": "Anonymous"}, sections[2])

	err = l.Add("video")
	assert.ErrorIs(t, err, ErrUnknownVariant)
	assert.Equal(t, []string{"quote", "image"}, l.VariantNames())
}

func TestList_MutationKeepsPendingEdits(t *testing.T) {
	pool := richtext.NewMemoryPool()
	f := Render(pageFields(), pageData(), pool)

	text, err := f.Control("sections.0.text")
	require.NoError(t, err)
	text.SetText("<p>edited</p>")

	l, _ := f.List("sections")
	require.True(t, l.MoveDown(0))

	moved, err := f.Control("sections.1.text")
	require.NoError(t, err)
	assert.Equal(t, "<p>edited</p>", moved.Text())
	// old editors were released, new ones acquired: intro + two quotes
	assert.Equal(t, 3, pool.Len())
}

func TestList_UnknownVariantPreserved(t *testing.T) {
	data := map[string]interface{}{
		"sections": []interface{}{
			map[string]interface{}{"type": "video", "url": "https://example.com/v"},
			map[string]interface{}{"type": "image", "src": "/a.png", "alt": "A"},
			"not a map",
		},
	}
	f := Render(pageFields(), data, nil)

	var kinds []RowKind
	for _, row := range f.Rows() {
		if row.Item != nil {
			kinds = append(kinds, row.Kind)
		}
	}
	assert.Equal(t, []RowKind{RowUnknownItem, RowItem, RowUnknownItem}, kinds)

	l, _ := f.List("sections")
	assert.Equal(t, `Unknown type "video" #1`, l.Items[0].Label(0))
	assert.Equal(t, "Unknown item #3", l.Items[2].Label(2))
	require.True(t, l.MoveDown(0))

	got := f.Read()["sections"].([]interface{})
	assert.Equal(t, []interface{}{
		map[string]interface{}{"type": "image", "src": "/a.png", "alt": "A"},
		map[string]interface{}{"type": "video", "url": "https://example.com/v"},
		"not a map",
	}, got)

	_, err := f.Control("sections.1.url")
	assert.ErrorIs(t, err, ErrNoSuchField)
}

func TestLookup_Errors(t *testing.T) {
	f := Render(pageFields(), pageData(), nil)

	_, err := f.Lookup("")
	assert.ErrorIs(t, err, ErrNoSuchField)
	_, err = f.Lookup("missing")
	assert.ErrorIs(t, err, ErrNoSuchField)
	_, err = f.Lookup("sections.9.text")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = f.Lookup("sections.x.text")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = f.Lookup("title.sub")
	assert.ErrorIs(t, err, ErrNoSuchField)
	_, err = f.Control("seo")
	assert.ErrorIs(t, err, ErrNotEditable)
	_, err = f.List("title")
	assert.ErrorIs(t, err, ErrNoSuchField)
	_, err = f.Lookup("layout")
	assert.NoError(t, err)
}

func TestRows_Order(t *testing.T) {
	data := map[string]interface{}{
		"sections": []interface{}{
			map[string]interface{}{"type": "image", "src": "/a.png", "alt": "A"},
		},
	}
	f := Render(pageFields(), data, nil)

	var paths []string
	for _, row := range f.Rows() {
		paths = append(paths, row.Path)
	}
	assert.Equal(t, []string{
		"title", "summary", "script", "intro",
		"seo", "seo.description", "seo.social", "seo.social.image",
		"sections", "sections.0", "sections.0.src", "sections.0.alt", "sections",
	}, paths)

	rows := f.Rows()
	last := rows[len(rows)-1]
	assert.Equal(t, RowAdd, last.Kind)
	assert.Equal(t, "Add Sections", last.Label)
	assert.True(t, last.Focusable())
	assert.False(t, rows[4].Focusable())
}

func TestRender_MismatchedShapeIsKept(t *testing.T) {
	data := map[string]interface{}{"seo": "legacy", "sections": "legacy string"}
	f := Render(pageFields(), data, nil)

	got := f.Read()
	assert.Equal(t, "legacy", got["seo"])
	assert.Equal(t, "legacy string", got["sections"])

	var kinds []RowKind
	for _, row := range f.Rows() {
		if row.Path == "seo" || row.Path == "sections" {
			kinds = append(kinds, row.Kind)
			assert.True(t, row.Focusable())
			assert.Equal(t, "string", row.Mismatch.Describe())
		}
	}
	assert.Equal(t, []RowKind{RowMismatch, RowMismatch}, kinds)

	_, err := f.Control("seo.description")
	assert.ErrorIs(t, err, ErrNoSuchField)
	_, err = f.List("sections")
	assert.ErrorIs(t, err, ErrNoSuchField)
}

func TestReset_ReplacesMismatchedValue(t *testing.T) {
	data := map[string]interface{}{"seo": "legacy", "sections": "legacy string"}
	f := Render(pageFields(), data, nil)

	seo, err := f.Lookup("seo")
	require.NoError(t, err)
	require.True(t, f.Reset(seo.(*MismatchNode)))
	assert.False(t, f.Reset(seo.(*MismatchNode)), "already replaced")

	c, err := f.Control("seo.description")
	require.NoError(t, err)
	c.SetText("fresh")

	got := f.Read()
	assert.Equal(t, map[string]interface{}{
		"description": "fresh",
		"social":      map[string]interface{}{"image": ""},
	}, got["seo"])
	assert.Equal(t, "legacy string", got["sections"])
}

func TestRender_NullObjectAndListAreEmpty(t *testing.T) {
	f := Render(pageFields(), map[string]interface{}{"seo": nil, "sections": nil}, nil)
	for _, row := range f.Rows() {
		assert.NotEqual(t, RowMismatch, row.Kind, row.Path)
	}
	assert.Equal(t, []interface{}{}, f.Read()["sections"])
}

func TestRead_AbsentFieldKeepsTypedDefault(t *testing.T) {
	fields := []models.FieldSchema{
		{Name: "draft", Widget: models.WidgetScalar, Default: false},
		{Name: "order", Widget: models.WidgetScalar, Default: 10},
	}
	f := Render(fields, map[string]interface{}{}, nil)
	assert.Equal(t, map[string]interface{}{"draft": false, "order": 10}, f.Read())

	c, err := f.Control("draft")
	require.NoError(t, err)
	assert.Equal(t, "false", c.Text())
	c.SetText("true")
	assert.Equal(t, "true", f.Read()["draft"], "an edited control writes its text")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "x", formatValue("x"))
	assert.Equal(t, "3", formatValue(3))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, "- a\n- b", formatValue([]interface{}{"a", "b"}))
}
