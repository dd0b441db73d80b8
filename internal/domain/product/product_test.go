package product

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/feed-import/internal/domain/asset"
)

type mockProductRepo struct {
	byGTIN   map[string]*Product
	findErr  error
	lastOpts FindOptions
}

func (m *mockProductRepo) FindByGTIN(_ context.Context, gtin string, opts FindOptions) (*Product, error) {
	m.lastOpts = opts
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.byGTIN[gtin]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) Save(_ context.Context, p *Product) error {
	m.byGTIN[p.GTIN] = p
	return nil
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "digits", in: "04006381333931", want: "04006381333931"},
		{name: "slash replaced", in: "ab/cd", want: "ab-cd"},
		{name: "spaces collapse", in: "a  b \t c", want: "a-b-c"},
		{name: "accents folded", in: "Crème brûlée", want: "Creme-brulee"},
		{name: "trimmed", in: "  /x/  ", want: "x"},
		{name: "allowed punctuation kept", in: "a.b_c~d-e", want: "a.b_c~d-e"},
		{name: "empty", in: "", want: "-"},
		{name: "only separators", in: "///", want: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidKey(tt.in))
		})
	}
}

func TestValidKey_Truncates(t *testing.T) {
	key := ValidKey(strings.Repeat("9", 300))
	assert.Len(t, key, maxKeyLen)
}

func TestNew(t *testing.T) {
	p := New("00/01")

	assert.True(t, p.IsNew())
	assert.Equal(t, RootID, p.ParentID)
	assert.Equal(t, "00-01", p.Key)
	assert.Equal(t, "00/01", p.GTIN)
	assert.False(t, p.Published)
	assert.Nil(t, p.ImageID)
}

func TestSetImage(t *testing.T) {
	p := New("0001")
	a := &asset.Asset{ID: 42}
	p.SetImage(a)
	a.ID = 43

	require.NotNil(t, p.ImageID)
	assert.Equal(t, int64(42), *p.ImageID)
}

func TestFindOrCreate_Existing(t *testing.T) {
	existing := &Product{ID: 9, ParentID: RootID, Key: "0001", GTIN: "0001", Name: "Old"}
	repo := &mockProductRepo{byGTIN: map[string]*Product{"0001": existing}}
	svc := NewService(repo)

	p, err := svc.FindOrCreate(context.Background(), "0001")
	require.NoError(t, err)
	assert.Same(t, existing, p)
	assert.Equal(t, DefaultFindOptions(), repo.lastOpts)
	assert.True(t, repo.lastOpts.IncludeUnpublished)
}

func TestFindOrCreate_Missing(t *testing.T) {
	repo := &mockProductRepo{byGTIN: map[string]*Product{}}
	svc := NewService(repo)

	p, err := svc.FindOrCreate(context.Background(), "0002")
	require.NoError(t, err)
	assert.True(t, p.IsNew())
	assert.Equal(t, "0002", p.GTIN)
	assert.Empty(t, repo.byGTIN, "FindOrCreate must not persist")
}

func TestFindOrCreate_StoreError(t *testing.T) {
	repo := &mockProductRepo{findErr: errors.New("db down")}
	svc := NewService(repo)

	_, err := svc.FindOrCreate(context.Background(), "0003")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find product 0003")
}
