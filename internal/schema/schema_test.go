package schema

import (
	"testing"

	"quartermaster/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RejectsDuplicateKeys(t *testing.T) {
	_, err := New(zap.NewNop(),
		&models.Setting{Key: "a", Name: "A"},
		&models.Setting{Key: "a", Name: "A again"},
	)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNew_RejectsUnknownDependency(t *testing.T) {
	_, err := New(zap.NewNop(),
		&models.Setting{Key: "a", Name: "A", DependsOn: []string{"missing"}},
	)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestNew_PreservesDeclarationOrder(t *testing.T) {
	sch, err := New(zap.NewNop(),
		&models.Setting{Key: "z", Name: "Z"},
		&models.Setting{Key: "a", Name: "A"},
		&models.Setting{Key: "m", Name: "M"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, sch.Keys())
}

func TestVisible_NilPredicateAlwaysVisible(t *testing.T) {
	sch, err := New(zap.NewNop(), &models.Setting{Key: "a", Name: "A"})
	require.NoError(t, err)
	st, _ := sch.Get("a")
	assert.True(t, sch.Visible(st, map[string]*string{}))
}

func TestVisible_PanickingPredicateIsFalse(t *testing.T) {
	st := &models.Setting{
		Key:  "a",
		Name: "A",
		VisibleIf: func(values map[string]*string) bool {
			panic("schema author error")
		},
	}
	sch, err := New(zap.NewNop(), st)
	require.NoError(t, err)
	assert.False(t, sch.Visible(st, map[string]*string{}))
}

func TestValid_PanickingValidatorIsInvalid(t *testing.T) {
	st := &models.Setting{
		Key:  "a",
		Name: "A",
		Validate: func(value string) bool {
			panic("schema author error")
		},
	}
	sch, err := New(zap.NewNop(), st)
	require.NoError(t, err)
	assert.False(t, sch.Valid(st, "anything"))
}

func TestRunOnSet_PanickingHookReturnsEmpty(t *testing.T) {
	st := &models.Setting{
		Key:  "a",
		Name: "A",
		OnSet: func(value string) string {
			panic("schema author error")
		},
	}
	sch, err := New(zap.NewNop(), st)
	require.NoError(t, err)
	assert.Equal(t, "", sch.RunOnSet(st, "v"))
}

func TestDepsMet(t *testing.T) {
	a := &models.Setting{Key: "a", Name: "A"}
	b := &models.Setting{Key: "b", Name: "B", DependsOn: []string{"a"}}
	sch, err := New(zap.NewNop(), a, b)
	require.NoError(t, err)

	values := map[string]*string{"a": nil, "b": nil}
	assert.False(t, sch.DepsMet(b, values))

	v := "x"
	values["a"] = &v
	assert.True(t, sch.DepsMet(b, values))
}

func TestLookupValidator(t *testing.T) {
	cases := []struct {
		ref   string
		value string
		want  bool
	}{
		{"nonempty", "hello", true},
		{"nonempty", "   ", false},
		{"url", "https://example.com", true},
		{"url", "not a url", false},
		{"email", "ops@example.com", true},
		{"email", "nope", false},
		{"oneof:red|green|blue", "green", true},
		{"oneof:red|green|blue", "purple", false},
		{"regex:^[0-9]+$", "12345", true},
		{"regex:^[0-9]+$", "abc", false},
		{"maxlen:5", "abc", true},
		{"maxlen:5", "abcdef", false},
	}
	for _, tc := range cases {
		fn, err := LookupValidator(tc.ref)
		require.NoError(t, err, tc.ref)
		assert.Equal(t, tc.want, fn(tc.value), "%s(%q)", tc.ref, tc.value)
	}
}

func TestLookupValidator_Unknown(t *testing.T) {
	_, err := LookupValidator("nonsense")
	assert.Error(t, err)

	_, err = LookupValidator("regex:[invalid")
	assert.Error(t, err)
}

func TestLoad_FullSchema(t *testing.T) {
	data := []byte(`
settings:
  - key: server_url
    name: Server URL
    description: Base URL of the service.
    required: true
    validate: url
  - key: api_token
    name: API Token
    description: Token used against the server.
    required: true
    secret: true
    depends_on: [server_url]
    validate: nonempty
  - key: region
    name: Region
    description: Deployment region.
    validate: "oneof:us|eu"
    visible_if:
      key: server_url
      any_set: true
`)
	sch, err := Load(data, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"server_url", "api_token", "region"}, sch.Keys())

	token, ok := sch.Get("api_token")
	require.True(t, ok)
	assert.True(t, token.Secret)
	assert.Equal(t, []string{"server_url"}, token.DependsOn)
	assert.True(t, sch.Valid(token, "abc123"))
	assert.False(t, sch.Valid(token, "   "))

	region, _ := sch.Get("region")
	values := map[string]*string{"server_url": nil}
	assert.False(t, sch.Visible(region, values))
	url := "https://example.com"
	values["server_url"] = &url
	assert.True(t, sch.Visible(region, values))
}

func TestLoad_VisibleIfEquals(t *testing.T) {
	data := []byte(`
settings:
  - key: mode
    name: Mode
    description: Operating mode.
    required: true
  - key: strict_contact
    name: Strict Contact
    description: Shown only in strict mode.
    visible_if:
      key: mode
      equals: strict
`)
	sch, err := Load(data, zap.NewNop())
	require.NoError(t, err)

	st, _ := sch.Get("strict_contact")
	relaxed := "relaxed"
	strict := "strict"
	assert.False(t, sch.Visible(st, map[string]*string{"mode": nil}))
	assert.False(t, sch.Visible(st, map[string]*string{"mode": &relaxed}))
	assert.True(t, sch.Visible(st, map[string]*string{"mode": &strict}))
}

func TestLoad_EmptySchemaFails(t *testing.T) {
	_, err := Load([]byte("settings: []"), zap.NewNop())
	assert.Error(t, err)
}
