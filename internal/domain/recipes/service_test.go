package recipes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastledger/internal/core/apperror"
	"roastledger/internal/core/id"
	"roastledger/internal/domain/bean"
)

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeRepo is an in-memory Repository for resolver tests.
type fakeRepo struct {
	products    map[string]id.ID // active products by name
	assignments map[id.ID][]Assignment
	boms        map[id.ID]MasterBOM
	legacy      map[string][]LegacyBatch
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:    make(map[string]id.ID),
		assignments: make(map[id.ID][]Assignment),
		boms:        make(map[id.ID]MasterBOM),
		legacy:      make(map[string][]LegacyBatch),
	}
}

func (r *fakeRepo) FindActiveProduct(ctx context.Context, name string) (id.ID, error) {
	if pid, ok := r.products[name]; ok {
		return pid, nil
	}
	return id.Nil(), apperror.NewNotFound("product", name)
}

func (r *fakeRepo) FindAssignment(ctx context.Context, productID id.ID, asOf *time.Time) (Assignment, error) {
	var best *Assignment
	for i := range r.assignments[productID] {
		a := r.assignments[productID][i]
		if asOf != nil && a.EffectiveDate.After(*asOf) {
			continue
		}
		if best == nil || a.EffectiveDate.After(best.EffectiveDate) {
			best = &a
		}
	}
	if best == nil {
		return Assignment{}, apperror.NewNotFound("assignment", productID)
	}
	return *best, nil
}

func (r *fakeRepo) GetBOM(ctx context.Context, bomID id.ID) (MasterBOM, error) {
	if b, ok := r.boms[bomID]; ok {
		return b, nil
	}
	return MasterBOM{}, apperror.NewNotFound("master bom", bomID)
}

func (r *fakeRepo) FindLegacyBatch(ctx context.Context, productName string, asOf *time.Time) (LegacyBatch, error) {
	var best *LegacyBatch
	for i := range r.legacy[productName] {
		b := r.legacy[productName][i]
		if b.EffectiveDate != nil && asOf != nil && b.EffectiveDate.After(*asOf) {
			continue
		}
		if best == nil {
			best = &b
			continue
		}
		// Null dates lose to any dated batch; among dated, latest wins.
		switch {
		case b.EffectiveDate == nil:
		case best.EffectiveDate == nil:
			best = &b
		case b.EffectiveDate.After(*best.EffectiveDate):
			best = &b
		}
	}
	if best == nil {
		return LegacyBatch{}, apperror.NewNotFound("legacy recipe", productName)
	}
	return *best, nil
}

func (r *fakeRepo) CreateBOM(ctx context.Context, bom *MasterBOM) error {
	r.boms[bom.ID] = *bom
	return nil
}

func (r *fakeRepo) GetBOMByName(ctx context.Context, name string) (MasterBOM, error) {
	for _, b := range r.boms {
		if b.Name == name {
			return b, nil
		}
	}
	return MasterBOM{}, apperror.NewNotFound("master bom", name)
}

func (r *fakeRepo) ListBOMs(ctx context.Context, includeInactive bool) ([]MasterBOM, error) {
	var out []MasterBOM
	for _, b := range r.boms {
		if b.IsActive || includeInactive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) SetBOMActive(ctx context.Context, bomID id.ID, active bool) error {
	b, ok := r.boms[bomID]
	if !ok {
		return apperror.NewNotFound("master bom", bomID)
	}
	b.IsActive = active
	r.boms[bomID] = b
	return nil
}

func (r *fakeRepo) AppendAssignment(ctx context.Context, a *Assignment) error {
	r.assignments[a.ProductID] = append(r.assignments[a.ProductID], *a)
	return nil
}

func (r *fakeRepo) ListAssignments(ctx context.Context, productID id.ID) ([]Assignment, error) {
	return r.assignments[productID], nil
}

func (r *fakeRepo) AppendLegacyBatch(ctx context.Context, batch LegacyBatch) error {
	r.legacy[batch.ProductName] = append(r.legacy[batch.ProductName], batch)
	return nil
}

func (r *fakeRepo) ListLegacyBatches(ctx context.Context, productName string) ([]LegacyBatch, error) {
	return r.legacy[productName], nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func blendLines() []Line {
	return []Line{
		{Bean: bean.New("Ethiopia", "Yirgacheffe G1"), RatioPct: 70},
		{Bean: bean.New("Colombia", "Huila Supremo"), RatioPct: 30},
	}
}

func TestResolve_MasterBOMWins(t *testing.T) {
	repo := newFakeRepo()
	productID := id.New()
	bomID := id.New()
	repo.products["House Blend"] = productID
	repo.boms[bomID] = MasterBOM{ID: bomID, Name: "House v1", IsActive: true, Lines: blendLines()}
	repo.assignments[productID] = []Assignment{
		{ProductID: productID, BOMID: &bomID, EffectiveDate: date(2026, 1, 1)},
	}
	// A legacy batch exists too; the BOM path must win.
	repo.legacy["House Blend"] = []LegacyBatch{
		{ProductName: "House Blend", Lines: []Line{{Bean: bean.New("Brazil", "Santos"), RatioPct: 100}}},
	}

	svc := NewService(repo, noopTxManager{})
	asOf := date(2026, 3, 15)
	recipe, err := svc.Resolve(context.Background(), "House Blend", &asOf)
	require.NoError(t, err)

	assert.Equal(t, SourceMasterBOM, recipe.Source)
	assert.Equal(t, "House v1", recipe.BOMName)
	require.Len(t, recipe.Lines, 2)
	assert.Equal(t, 70.0, recipe.Lines[0].RatioPct)
}

func TestResolve_AssignmentHistoryByDate(t *testing.T) {
	repo := newFakeRepo()
	productID := id.New()
	oldBOM := id.New()
	newBOM := id.New()
	repo.products["House Blend"] = productID
	repo.boms[oldBOM] = MasterBOM{ID: oldBOM, Name: "House v1", IsActive: true, Lines: blendLines()}
	repo.boms[newBOM] = MasterBOM{ID: newBOM, Name: "House v2", IsActive: true,
		Lines: []Line{{Bean: bean.New("Kenya", "AA"), RatioPct: 100}}}
	repo.assignments[productID] = []Assignment{
		{ProductID: productID, BOMID: &oldBOM, EffectiveDate: date(2026, 1, 1)},
		{ProductID: productID, BOMID: &newBOM, EffectiveDate: date(2026, 6, 1)},
	}

	svc := NewService(repo, noopTxManager{})

	// A sale before the reassignment resolves to the old BOM.
	asOf := date(2026, 3, 1)
	recipe, err := svc.Resolve(context.Background(), "House Blend", &asOf)
	require.NoError(t, err)
	assert.Equal(t, "House v1", recipe.BOMName)

	// A sale after resolves to the new BOM.
	asOf = date(2026, 7, 1)
	recipe, err = svc.Resolve(context.Background(), "House Blend", &asOf)
	require.NoError(t, err)
	assert.Equal(t, "House v2", recipe.BOMName)

	// No date: latest assignment overall.
	recipe, err = svc.Resolve(context.Background(), "House Blend", nil)
	require.NoError(t, err)
	assert.Equal(t, "House v2", recipe.BOMName)
}

func TestResolve_UnlinkFallsThroughToLegacy(t *testing.T) {
	repo := newFakeRepo()
	productID := id.New()
	bomID := id.New()
	repo.products["Single Origin"] = productID
	repo.boms[bomID] = MasterBOM{ID: bomID, Name: "SO v1", IsActive: true, Lines: blendLines()}
	repo.assignments[productID] = []Assignment{
		{ProductID: productID, BOMID: &bomID, EffectiveDate: date(2026, 1, 1)},
		{ProductID: productID, BOMID: nil, EffectiveDate: date(2026, 5, 1)}, // unlinked
	}
	eff := date(2026, 2, 1)
	repo.legacy["Single Origin"] = []LegacyBatch{
		{ProductName: "Single Origin", EffectiveDate: &eff,
			Lines: []Line{{Bean: bean.New("Guatemala", "Antigua"), RatioPct: 100}}},
	}

	svc := NewService(repo, noopTxManager{})
	asOf := date(2026, 6, 1)
	recipe, err := svc.Resolve(context.Background(), "Single Origin", &asOf)
	require.NoError(t, err)

	assert.Equal(t, SourceLegacy, recipe.Source)
	assert.Equal(t, "Antigua", recipe.Lines[0].Bean.Product)
}

func TestResolve_LegacyBatchSelection(t *testing.T) {
	repo := newFakeRepo()
	jan := date(2026, 1, 10)
	mar := date(2026, 3, 10)
	repo.legacy["Dark Roast"] = []LegacyBatch{
		{ProductName: "Dark Roast", Lines: []Line{{Bean: bean.New("Brazil", "Santos"), RatioPct: 100}}},
		{ProductName: "Dark Roast", EffectiveDate: &jan,
			Lines: []Line{{Bean: bean.New("Vietnam", "Robusta"), RatioPct: 100}}},
		{ProductName: "Dark Roast", EffectiveDate: &mar,
			Lines: []Line{{Bean: bean.New("India", "Cherry AB"), RatioPct: 100}}},
	}

	svc := NewService(repo, noopTxManager{})

	// Before any dated batch only the undated one qualifies.
	asOf := date(2025, 12, 1)
	recipe, err := svc.Resolve(context.Background(), "Dark Roast", &asOf)
	require.NoError(t, err)
	assert.Equal(t, "Santos", recipe.Lines[0].Bean.Product)

	// Between dated batches the January one wins.
	asOf = date(2026, 2, 1)
	recipe, err = svc.Resolve(context.Background(), "Dark Roast", &asOf)
	require.NoError(t, err)
	assert.Equal(t, "Robusta", recipe.Lines[0].Bean.Product)

	// After March the latest wins.
	asOf = date(2026, 4, 1)
	recipe, err = svc.Resolve(context.Background(), "Dark Roast", &asOf)
	require.NoError(t, err)
	assert.Equal(t, "Cherry AB", recipe.Lines[0].Bean.Product)
}

func TestResolve_NoneIsNotAnError(t *testing.T) {
	svc := NewService(newFakeRepo(), noopTxManager{})
	recipe, err := svc.Resolve(context.Background(), "Unknown Product", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, recipe.Source)
	assert.False(t, recipe.IsResolved())
}

func TestValidateRatios(t *testing.T) {
	assert.NoError(t, ValidateRatios(blendLines()))

	// 99.995 is inside the 0.01 tolerance.
	ok := []Line{
		{Bean: bean.New("A", "B"), RatioPct: 49.995},
		{Bean: bean.New("C", "D"), RatioPct: 50.0},
	}
	assert.NoError(t, ValidateRatios(ok))

	bad := []Line{
		{Bean: bean.New("A", "B"), RatioPct: 60},
		{Bean: bean.New("C", "D"), RatioPct: 30},
	}
	err := ValidateRatios(bad)
	require.Error(t, err)
	appErr, isApp := apperror.AsAppError(err)
	require.True(t, isApp)
	assert.Equal(t, apperror.CodeRatioSum, appErr.Code)
	assert.Equal(t, 90.0, appErr.Details["total_pct"])

	assert.Error(t, ValidateRatios(nil))
}

func TestListLegacyBatches(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, noopTxManager{})
	ctx := context.Background()

	mar := date(2026, 3, 10)
	repo.legacy["Dark Roast"] = []LegacyBatch{
		{ProductName: "Dark Roast", EffectiveDate: &mar,
			Lines: []Line{{Bean: bean.New("India", "Cherry AB"), RatioPct: 100}}},
		{ProductName: "Dark Roast",
			Lines: []Line{{Bean: bean.New("Brazil", "Santos"), RatioPct: 100}}},
	}

	batches, err := svc.ListLegacyBatches(ctx, "Dark Roast")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "Cherry AB", batches[0].Lines[0].Bean.Product)
	assert.Nil(t, batches[1].EffectiveDate)

	_, err = svc.ListLegacyBatches(ctx, "")
	assert.Error(t, err)
}

func TestCreateMasterBOM_RejectsDuplicateName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, noopTxManager{})

	_, err := svc.CreateMasterBOM(context.Background(), MasterBOM{Name: "House v1", IsActive: true, Lines: blendLines()})
	require.NoError(t, err)

	_, err = svc.CreateMasterBOM(context.Background(), MasterBOM{Name: "House v1", IsActive: true, Lines: blendLines()})
	assert.True(t, apperror.IsDuplicate(err))
}
