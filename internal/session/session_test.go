package session

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/templating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type push struct {
	imageID string
	field   models.Field
	value   string
}

// fakeUpdater records pushes and fails for the listed image ids
type fakeUpdater struct {
	pushes []push
	fail   map[string]bool
}

func (f *fakeUpdater) PushImageField(_ context.Context, _, imageID string, field models.Field, value string) bool {
	f.pushes = append(f.pushes, push{imageID, field, value})
	return !f.fail[imageID]
}

type fakeFetcher struct {
	products []models.Product
	err      error
	ids      []string
}

func (f *fakeFetcher) FetchProducts(_ context.Context, ids ...string) ([]models.Product, error) {
	f.ids = ids
	return f.products, f.err
}

type zeroSource struct{}

func (zeroSource) IntN(int) int { return 0 }

func acmeProduct(images int) models.Product {
	p := models.Product{
		ID:     "gid://shopify/Product/1",
		Title:  "Blue Denim Jacket",
		Vendor: "Acme",
		Type:   "Jacket",
		Tags:   []string{"summer"},
	}
	for i := 0; i < images; i++ {
		id := string(rune('a' + i))
		p.Images = append(p.Images, models.Image{ID: "img-" + id, Filename: "orig-" + id + ".jpg"})
	}
	return p
}

func newSession(t *testing.T, updater *fakeUpdater, products ...models.Product) *Session {
	t.Helper()
	s := New(nil, templating.NewResolver(zeroSource{}), updater)
	require.NoError(t, s.Load(context.Background(), &fakeFetcher{products: products}))
	return s
}

func image(t *testing.T, s *Session, productID string, i int) models.Image {
	t.Helper()
	p, ok := s.Products.Get(productID)
	require.True(t, ok)
	return p.Images[i]
}

func TestLoad(t *testing.T) {
	s := New(nil, nil, nil)
	f := &fakeFetcher{products: []models.Product{acmeProduct(1)}}
	require.NoError(t, s.Load(context.Background(), f, "gid://shopify/Product/1"))
	assert.Equal(t, 1, s.Products.Len())
	assert.Equal(t, []string{"gid://shopify/Product/1"}, f.ids)

	f.err = errors.New("boom")
	err := s.Load(context.Background(), f)
	require.Error(t, err)
	assert.Equal(t, 1, s.Products.Len())
}

func TestApplyAltTemplate(t *testing.T) {
	up := &fakeUpdater{}
	s := newSession(t, up, acmeProduct(2))
	tmpl, err := s.Templates.Pool(models.FieldAlt).Create("Basic", "{title} - {vendor} product")
	require.NoError(t, err)

	out, err := s.Apply(context.Background(), "gid://shopify/Product/1", "img-b", tmpl.ID, models.FieldAlt)
	require.NoError(t, err)
	assert.True(t, out.Pushed)
	assert.True(t, out.Updated)
	assert.Equal(t, "Blue Denim Jacket - Acme product", out.Value)

	img := image(t, s, "gid://shopify/Product/1", 1)
	assert.Equal(t, "Blue Denim Jacket - Acme product", img.Alt)
	require.NotNil(t, img.AltTemplateID)
	assert.Equal(t, tmpl.ID, *img.AltTemplateID)
	assert.Equal(t, []push{{"img-b", models.FieldAlt, "Blue Denim Jacket - Acme product"}}, up.pushes)

	// other image untouched
	assert.Equal(t, "", image(t, s, "gid://shopify/Product/1", 0).Alt)
}

func TestApplyNotFound(t *testing.T) {
	s := newSession(t, &fakeUpdater{}, acmeProduct(1))

	_, err := s.Apply(context.Background(), "missing", "img-a", "alt_1", models.FieldAlt)
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = s.Apply(context.Background(), "gid://shopify/Product/1", "missing", "alt_1", models.FieldAlt)
	require.ErrorIs(t, err, ErrImageNotFound)
}

func TestApplyDanglingTemplate(t *testing.T) {
	up := &fakeUpdater{}
	s := newSession(t, up, acmeProduct(1))
	tmpl, err := s.Templates.Pool(models.FieldAlt).Create("Basic", "{title}")
	require.NoError(t, err)
	require.NoError(t, s.Templates.Pool(models.FieldAlt).Delete(tmpl.ID))

	out, err := s.Apply(context.Background(), "gid://shopify/Product/1", "img-a", tmpl.ID, models.FieldAlt)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.False(t, out.Updated)
	assert.Empty(t, up.pushes)
	assert.Nil(t, image(t, s, "gid://shopify/Product/1", 0).AltTemplateID)
}

func TestApplyFailedPush(t *testing.T) {
	tests := []struct {
		name      string
		confirmed bool
		wantAlt   string
	}{
		{"optimistic keeps local update", false, "Blue Denim Jacket"},
		{"confirmed leaves image unchanged", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpdater{fail: map[string]bool{"img-a": true}}
			s := newSession(t, up, acmeProduct(1))
			s.ConfirmedWrites = tt.confirmed
			tmpl, err := s.Templates.Pool(models.FieldAlt).Create("Title", "{title}")
			require.NoError(t, err)

			out, err := s.Apply(context.Background(), "gid://shopify/Product/1", "img-a", tmpl.ID, models.FieldAlt)
			require.NoError(t, err)
			assert.False(t, out.Pushed)
			assert.Equal(t, !tt.confirmed, out.Updated)
			assert.Equal(t, tt.wantAlt, image(t, s, "gid://shopify/Product/1", 0).Alt)
		})
	}
}

func TestApplyAllFilenamesUnique(t *testing.T) {
	up := &fakeUpdater{}
	s := newSession(t, up, acmeProduct(3))
	tmpl, err := s.Templates.Pool(models.FieldFilename).Create("Vendor", "{vendor}-product")
	require.NoError(t, err)

	run, err := s.ApplyAll(context.Background(), "gid://shopify/Product/1", tmpl.ID, models.FieldFilename, StopOnError)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.Stopped)
	require.Len(t, run.Outcomes, 3)

	want := []string{"acme-product.jpg", "acme-product-2.jpg", "acme-product-3.jpg"}
	for i, name := range want {
		assert.Equal(t, name, run.Outcomes[i].Value)
		img := image(t, s, "gid://shopify/Product/1", i)
		assert.Equal(t, name, img.Filename)
		require.NotNil(t, img.FilenameTemplateID)
		assert.Equal(t, tmpl.ID, *img.FilenameTemplateID)
	}
}

func TestApplyAllFilenamesIdempotent(t *testing.T) {
	s := newSession(t, &fakeUpdater{}, acmeProduct(2))
	tmpl, err := s.Templates.Pool(models.FieldFilename).Create("Vendor", "{vendor}-product")
	require.NoError(t, err)

	for range 2 {
		_, err := s.ApplyAll(context.Background(), "gid://shopify/Product/1", tmpl.ID, models.FieldFilename, StopOnError)
		require.NoError(t, err)
	}
	assert.Equal(t, "acme-product.jpg", image(t, s, "gid://shopify/Product/1", 0).Filename)
	assert.Equal(t, "acme-product-2.jpg", image(t, s, "gid://shopify/Product/1", 1).Filename)
}

func TestApplyFilenameAvoidsSiblings(t *testing.T) {
	p := acmeProduct(2)
	p.Images[0].Filename = "acme-product.jpg"
	s := newSession(t, &fakeUpdater{}, p)
	tmpl, err := s.Templates.Pool(models.FieldFilename).Create("Vendor", "{vendor}-product")
	require.NoError(t, err)

	out, err := s.Apply(context.Background(), p.ID, "img-b", tmpl.ID, models.FieldFilename)
	require.NoError(t, err)
	assert.Equal(t, "acme-product-2.jpg", out.Value)

	// re-applying to the image that already holds the name keeps it
	out, err = s.Apply(context.Background(), p.ID, "img-a", tmpl.ID, models.FieldFilename)
	require.NoError(t, err)
	assert.Equal(t, "acme-product.jpg", out.Value)
}

func TestApplyAllErrorPolicy(t *testing.T) {
	tests := []struct {
		name        string
		policy      ErrorPolicy
		wantPushes  int
		wantStopped bool
	}{
		{"stop", StopOnError, 2, true},
		{"continue", ContinueOnError, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpdater{fail: map[string]bool{"img-b": true}}
			s := newSession(t, up, acmeProduct(3))
			tmpl, err := s.Templates.Pool(models.FieldAlt).Create("Title", "{title} {index}")
			require.NoError(t, err)

			run, err := s.ApplyAll(context.Background(), "gid://shopify/Product/1", tmpl.ID, models.FieldAlt, tt.policy)
			require.NoError(t, err)
			assert.Len(t, up.pushes, tt.wantPushes)
			assert.Len(t, run.Outcomes, tt.wantPushes)
			assert.Equal(t, tt.wantStopped, run.Stopped)
			assert.Equal(t, 1, run.Failed())
			assert.Equal(t, "Blue Denim Jacket 1", image(t, s, "gid://shopify/Product/1", 0).Alt)
		})
	}
}

func TestApplyAllConfirmedFilenameFailureKeepsOldName(t *testing.T) {
	up := &fakeUpdater{fail: map[string]bool{"img-a": true}}
	s := newSession(t, up, acmeProduct(2))
	s.ConfirmedWrites = true
	tmpl, err := s.Templates.Pool(models.FieldFilename).Create("Vendor", "{vendor}-product")
	require.NoError(t, err)

	run, err := s.ApplyAll(context.Background(), "gid://shopify/Product/1", tmpl.ID, models.FieldFilename, ContinueOnError)
	require.NoError(t, err)
	require.Len(t, run.Outcomes, 2)

	assert.Equal(t, "orig-a.jpg", image(t, s, "gid://shopify/Product/1", 0).Filename)
	// the failed image's rendered name was returned to the pool
	assert.Equal(t, "acme-product.jpg", image(t, s, "gid://shopify/Product/1", 1).Filename)
}

func TestApplyAllDanglingTemplate(t *testing.T) {
	up := &fakeUpdater{}
	s := newSession(t, up, acmeProduct(2))

	run, err := s.ApplyAll(context.Background(), "gid://shopify/Product/1", "alt_99", models.FieldAlt, StopOnError)
	require.NoError(t, err)
	require.Len(t, run.Outcomes, 2)
	for _, o := range run.Outcomes {
		assert.True(t, o.Skipped)
	}
	assert.Empty(t, up.pushes)
	assert.Equal(t, 0, run.Failed())
}

func TestClear(t *testing.T) {
	up := &fakeUpdater{}
	s := newSession(t, up, acmeProduct(2))
	alt, err := s.Templates.Pool(models.FieldAlt).Create("Title", "{title}")
	require.NoError(t, err)
	fn, err := s.Templates.Pool(models.FieldFilename).Create("Vendor", "{vendor}")
	require.NoError(t, err)

	ctx := context.Background()
	pid := "gid://shopify/Product/1"
	_, err = s.ApplyAll(ctx, pid, alt.ID, models.FieldAlt, StopOnError)
	require.NoError(t, err)
	_, err = s.ApplyAll(ctx, pid, fn.ID, models.FieldFilename, StopOnError)
	require.NoError(t, err)

	_, err = s.Clear(ctx, pid, models.FieldAlt, StopOnError)
	require.NoError(t, err)
	pushesBefore := len(up.pushes)
	run, err := s.Clear(ctx, pid, models.FieldFilename, StopOnError)
	require.NoError(t, err)
	assert.Len(t, up.pushes, pushesBefore)
	require.Len(t, run.Outcomes, 2)
	for _, o := range run.Outcomes {
		assert.False(t, o.Pushed)
		assert.True(t, o.Local)
	}
	assert.Equal(t, 0, run.Failed())

	for i := range 2 {
		img := image(t, s, pid, i)
		assert.Equal(t, "", img.Alt)
		assert.Nil(t, img.AltTemplateID)
		assert.Nil(t, img.FilenameTemplateID)
		assert.NotEmpty(t, img.Filename)
	}
	assert.Equal(t, 0.0, s.Coverage().TextCoveragePct)
	assert.Equal(t, 0.0, s.Coverage().FilenameCoveragePct)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	up := &fakeUpdater{}
	s := newSession(t, up, acmeProduct(1))

	got, err := s.Preview("gid://shopify/Product/1", "{vendor}-{type}", models.FieldFilename, 0)
	require.NoError(t, err)
	assert.Equal(t, "acme-jacket.jpg", got)

	// literal template text is not normalized, only substituted values are
	got, err = s.Preview("gid://shopify/Product/1", "{vendor} {type}", models.FieldFilename, 0)
	require.NoError(t, err)
	assert.Equal(t, "acme jacket.jpg", got)

	got, err = s.Preview("gid://shopify/Product/1", "{title} #{index}", models.FieldAlt, 0)
	require.NoError(t, err)
	assert.Equal(t, "Blue Denim Jacket #1", got)

	assert.Empty(t, up.pushes)
	assert.Equal(t, "orig-a.jpg", image(t, s, "gid://shopify/Product/1", 0).Filename)
}

func TestSetAltAndCoverage(t *testing.T) {
	s := newSession(t, &fakeUpdater{}, acmeProduct(4))
	pid := "gid://shopify/Product/1"

	_, err := s.SetAlt(context.Background(), pid, "img-a", "Front view")
	require.NoError(t, err)

	sum, err := s.ProductCoverage(pid)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalImages)
	assert.Equal(t, 1, sum.WithText)
	assert.Equal(t, 25.0, sum.TextCoveragePct)
	assert.Equal(t, 0.0, sum.FilenameCoveragePct)

	_, err = s.ProductCoverage("missing")
	require.ErrorIs(t, err, ErrProductNotFound)

	per := s.PerProduct()
	require.Len(t, per, 1)
	assert.Equal(t, sum, per[0].Summary)
}

func TestPlanMatchesApplyWithoutMutating(t *testing.T) {
	up := &fakeUpdater{}
	s := newSession(t, up, acmeProduct(2))
	tmpl, err := s.Templates.Pool(models.FieldFilename).Create("Vendor", "{vendor}-product")
	require.NoError(t, err)
	pid := "gid://shopify/Product/1"

	planned, err := s.Plan(pid, tmpl.ID, models.FieldFilename)
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.Equal(t, "acme-product.jpg", planned[0].Value)
	assert.Equal(t, "acme-product-2.jpg", planned[1].Value)
	assert.Empty(t, up.pushes)
	assert.Equal(t, "orig-a.jpg", image(t, s, pid, 0).Filename)

	_, err = s.Plan(pid, "filename_9", models.FieldFilename)
	require.Error(t, err)
}

func TestNoUpdaterKeepsChangesLocal(t *testing.T) {
	s := New(nil, templating.NewResolver(zeroSource{}), nil)
	s.ConfirmedWrites = true
	require.NoError(t, s.Load(context.Background(), &fakeFetcher{products: []models.Product{acmeProduct(3)}}))
	tmpl, err := s.Templates.Pool(models.FieldAlt).Create("Title", "{title}")
	require.NoError(t, err)

	run, err := s.ApplyAll(context.Background(), "gid://shopify/Product/1", tmpl.ID, models.FieldAlt, StopOnError)
	require.NoError(t, err)
	assert.False(t, run.Stopped)
	require.Len(t, run.Outcomes, 3)
	for i, o := range run.Outcomes {
		assert.True(t, o.Local)
		assert.False(t, o.Pushed)
		assert.True(t, o.Updated)
		assert.Equal(t, "Blue Denim Jacket", image(t, s, "gid://shopify/Product/1", i).Alt)
	}
	assert.Equal(t, 0, run.Failed())
}
