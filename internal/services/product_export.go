package services

import (
	"context"
	"strings"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"ID", "Name", "Category", "Price", "DiscountPrice", "FinalPrice",
	"Stock", "RatingsAverage", "RatingsQuantity", "Variants", "Images", "CreatedAt",
}

// Export builds a workbook with one row per product, walking the catalog page by page.
func (s *ProductService) Export(ctx context.Context) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	q := repository.ListQuery{Sort: []string{"p.productid ASC"}, Limit: repository.MaxLimit}
	for {
		page, err := s.Repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		for i := range page {
			writeProductRow(sheet.AddRow(), &page[i])
		}
		if len(page) < q.Limit {
			break
		}
		q.Offset += q.Limit
	}
	return file, nil
}

func writeProductRow(row *xlsx.Row, p *model.Product) {
	row.AddCell().SetValue(p.ProductID)
	row.AddCell().SetValue(p.Name)
	row.AddCell().SetValue(p.CategoryName)
	row.AddCell().SetValue(p.Price)
	if p.DiscountPrice != nil {
		row.AddCell().SetValue(*p.DiscountPrice)
	} else {
		row.AddCell().SetValue("")
	}
	row.AddCell().SetValue(p.FinalPrice())
	row.AddCell().SetValue(p.StockQuantity)
	row.AddCell().SetValue(p.RatingsAverage)
	row.AddCell().SetValue(p.RatingsQuantity)

	variants := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, strings.Trim(v.Color+"/"+v.Size, "/"))
	}
	row.AddCell().SetValue(strings.Join(variants, ","))
	row.AddCell().SetValue(strings.Join(p.Images, ","))
	if p.CreatedAt != nil {
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
	} else {
		row.AddCell().SetValue("")
	}
}
