package services

import (
	"context"
	"fmt"
	"testing"

	"StoreProAPI/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func lampInput(categoryID int64) ProductInput {
	stock := 7
	return ProductInput{
		Name:          sptr("Desk lamp"),
		Description:   sptr("Adjustable arm"),
		CategoryID:    &categoryID,
		Price:         fptr(40),
		StockQuantity: &stock,
		Variants:      &[]model.Variant{{Color: "black", SKU: "LAMP-BLK"}},
		Images:        []string{"/img/products/lamp-1.jpg"},
	}
}

func TestProductCreate(t *testing.T) {
	env := newTestEnv(t)
	cat := env.seedCategory(t, "Lighting", nil)

	p, err := env.products.Create(context.Background(), lampInput(cat))
	require.NoError(t, err)
	assert.NotZero(t, p.ProductID)
	assert.Equal(t, "Lighting", p.CategoryName)
	assert.Equal(t, 40.0, p.FinalPrice())
	assert.Len(t, p.Variants, 1)
}

func TestProductCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	cat := env.seedCategory(t, "Lighting", nil)

	cases := map[string]func(in *ProductInput){
		"no images":         func(in *ProductInput) { in.Images = nil },
		"no price":          func(in *ProductInput) { in.Price = nil },
		"negative price":    func(in *ProductInput) { in.Price = fptr(-1) },
		"discount too high": func(in *ProductInput) { in.DiscountPrice = fptr(40) },
		"negative discount": func(in *ProductInput) { in.DiscountPrice = fptr(-5) },
		"blank name":        func(in *ProductInput) { in.Name = sptr("  ") },
		"unknown category":  func(in *ProductInput) { missing := int64(404); in.CategoryID = &missing },
		"negative stock":    func(in *ProductInput) { n := -2; in.StockQuantity = &n },
		"no description":    func(in *ProductInput) { in.Description = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := lampInput(cat)
			mutate(&in)
			_, err := env.products.Create(context.Background(), in)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestProductUpdateKeepsVariantsAndSwapsImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "Lighting", nil)
	p, err := env.products.Create(ctx, lampInput(cat))
	require.NoError(t, err)

	updated, err := env.products.Update(ctx, p.ProductID, ProductInput{DiscountPrice: fptr(30)})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.FinalPrice())
	assert.Len(t, updated.Variants, 1, "variants are kept when not supplied")
	env.images.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	env.images.On("Delete", mock.Anything, "/img/products/lamp-1.jpg").Return(nil).Once()
	updated, err = env.products.Update(ctx, p.ProductID, ProductInput{Images: []string{"/img/products/lamp-2.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/img/products/lamp-2.jpg"}, updated.Images)
	env.images.AssertExpectations(t)

	_, err = env.products.Update(ctx, p.ProductID, ProductInput{DiscountPrice: fptr(50)})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = env.products.Update(ctx, 404, ProductInput{})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestProductDeleteIgnoresImageErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.seedCategory(t, "Lighting", nil)
	p, err := env.products.Create(ctx, lampInput(cat))
	require.NoError(t, err)

	env.images.On("Delete", mock.Anything, mock.Anything).Return(fmt.Errorf("disk gone")).Once()
	require.NoError(t, env.products.Delete(ctx, p.ProductID))

	_, err = env.products.Get(ctx, p.ProductID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestProductSearch(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "lamp", 10, nil, 1)
	env.seedProduct(t, "chair", 10, nil, 1)

	_, err := env.products.Search(context.Background(), "   ")
	assert.Equal(t, KindValidation, KindOf(err))

	found, err := env.products.Search(context.Background(), "LAMP")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "lamp", found[0].Name)
}

func TestProductExportWritesOneRowPerProduct(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "lamp", 10, fptr(8), 3)
	env.seedProduct(t, "chair", 55, nil, 1)

	file, err := env.products.Export(context.Background())
	require.NoError(t, err)
	sheet, ok := file.Sheet["Products"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Name", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "lamp", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "cat-lamp", sheet.Rows[1].Cells[2].String())
	assert.Equal(t, "", sheet.Rows[2].Cells[4].String())
}
