package gormstore

import (
	"time"

	"billing-engine/internal/core"

	"github.com/shopspring/decimal"
)

// productRow is the persisted form of core.Product. Version is bumped on
// every write and checked in the WHERE clause of every update.
type productRow struct {
	ID            string          `gorm:"primaryKey;size:64"`
	Name          string          `gorm:"not null"`
	Category      string          `gorm:"not null;default:''"`
	Unit          string          `gorm:"not null;default:''"`
	SalePrice     decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Stock         decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Unlimited     bool            `gorm:"not null;default:false"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (productRow) TableName() string { return "products" }

type documentRow struct {
	Kind        string          `gorm:"primaryKey;size:16"`
	ID          string          `gorm:"primaryKey;size:64"`
	CustomerID  string          `gorm:"not null;index"`
	Items       []core.LineItem `gorm:"serializer:json;type:text;not null"`
	TaxRate     decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Status      string          `gorm:"size:16;not null;index"`
	Notes       string          `gorm:"not null;default:''"`
	DocDate     time.Time       `gorm:"not null"`
	DueDate     *time.Time
	PaymentDate *time.Time
	ExpiryDate  *time.Time
	SubTotal    decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	TaxAmount   decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	TotalAmount decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	Version     int64           `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (documentRow) TableName() string { return "billing_documents" }

func productFromRow(r *productRow) *core.Product {
	return &core.Product{
		ID:            r.ID,
		Name:          r.Name,
		Category:      r.Category,
		Unit:          r.Unit,
		SalePrice:     r.SalePrice,
		PurchasePrice: r.PurchasePrice,
		Stock:         r.Stock,
		Unlimited:     r.Unlimited,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func productToRow(p *core.Product, version int64) *productRow {
	return &productRow{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		Unit:          p.Unit,
		SalePrice:     p.SalePrice,
		PurchasePrice: p.PurchasePrice,
		Stock:         p.Stock,
		Unlimited:     p.Unlimited,
		Version:       version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func documentFromRow(r *documentRow) *core.Document {
	return &core.Document{
		ID:          r.ID,
		Kind:        core.DocumentKind(r.Kind),
		CustomerID:  r.CustomerID,
		Items:       append([]core.LineItem(nil), r.Items...),
		TaxRate:     r.TaxRate,
		Status:      core.DocumentStatus(r.Status),
		Notes:       r.Notes,
		Date:        r.DocDate,
		DueDate:     r.DueDate,
		PaymentDate: r.PaymentDate,
		ExpiryDate:  r.ExpiryDate,
		SubTotal:    r.SubTotal,
		TaxAmount:   r.TaxAmount,
		TotalAmount: r.TotalAmount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func documentToRow(d *core.Document, version int64) *documentRow {
	return &documentRow{
		Kind:        string(d.Kind),
		ID:          d.ID,
		CustomerID:  d.CustomerID,
		Items:       d.Items,
		TaxRate:     d.TaxRate,
		Status:      string(d.Status),
		Notes:       d.Notes,
		DocDate:     d.Date,
		DueDate:     d.DueDate,
		PaymentDate: d.PaymentDate,
		ExpiryDate:  d.ExpiryDate,
		SubTotal:    d.SubTotal,
		TaxAmount:   d.TaxAmount,
		TotalAmount: d.TotalAmount,
		Version:     version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
