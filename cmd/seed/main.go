// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"bevstock/internal/core/apperror"
	"bevstock/internal/core/entity"
	"bevstock/internal/domain/catalogs/category"
	"bevstock/internal/domain/catalogs/product"
	"bevstock/internal/domain/catalogs/supplier"
	"bevstock/internal/domain/catalogs/taxclass"
	"bevstock/internal/domain/catalogs/unit"
	"bevstock/internal/domain/registers/stock"
	"bevstock/internal/infrastructure/storage/postgres"
	"bevstock/internal/infrastructure/storage/postgres/catalog_repo"
	"bevstock/internal/infrastructure/storage/postgres/register_repo"
	"bevstock/pkg/logger"
	"bevstock/pkg/numerator"
)

// services bundles everything the seed steps need.
type services struct {
	units      *unit.Service
	categories *category.Service
	taxClasses *taxclass.Service
	suppliers  *supplier.Service
	products   *product.Service
	stock      *stock.Service
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	svc := buildServices(pool)

	if err := seedBaseData(ctx, svc, log); err != nil {
		log.Fatalw("failed to seed base data", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, svc, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	postgres.LogPoolStats(ctx, pool.Pool)
	log.Info("seeding completed successfully")
}

func buildServices(pool *postgres.Pool) *services {
	txManager := postgres.NewTxManager(pool)
	num := numerator.New(pool.Pool)

	unitRepo := catalog_repo.NewUnitRepo(txManager)
	convRepo := catalog_repo.NewConversionRepo(txManager)
	categoryRepo := catalog_repo.NewCategoryRepo(txManager)
	taxClassRepo := catalog_repo.NewTaxClassRepo(txManager)
	supplierRepo := catalog_repo.NewSupplierRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	productUnitRepo := catalog_repo.NewProductUnitRepo(txManager)
	stockRepo := register_repo.NewStockRepo(txManager)

	unitSvc := unit.NewService(unitRepo, convRepo, txManager, num)

	return &services{
		units:      unitSvc,
		categories: category.NewService(categoryRepo, txManager, num),
		taxClasses: taxclass.NewService(taxClassRepo, txManager, num),
		suppliers:  supplier.NewService(supplierRepo, txManager, num),
		products:   product.NewService(productRepo, productUnitRepo, unitSvc, txManager, num),
		stock:      stock.NewService(stockRepo, productRepo, unitSvc.Resolver(), txManager),
	}
}

// seedBaseData creates the units, conversion edges and tax classes every
// installation needs. Safe to run repeatedly.
func seedBaseData(ctx context.Context, svc *services, log *logger.Logger) error {
	piece, err := ensureUnit(ctx, svc, log, unit.NewBaseUnit("UNIT-PCS", "Piece", "pcs", unit.TypePiece))
	if err != nil {
		return err
	}
	liter, err := ensureUnit(ctx, svc, log, unit.NewBaseUnit("UNIT-L", "Liter", "l", unit.TypeVolume))
	if err != nil {
		return err
	}

	pack6, err := ensureUnit(ctx, svc, log, unit.NewUnit("UNIT-CS6", "6-Pack", "cs6", unit.TypePack))
	if err != nil {
		return err
	}
	pack12, err := ensureUnit(ctx, svc, log, unit.NewUnit("UNIT-CS12", "12-Pack", "cs12", unit.TypePack))
	if err != nil {
		return err
	}
	keg50, err := ensureUnit(ctx, svc, log, unit.NewUnit("UNIT-KEG50", "50l Keg", "keg50", unit.TypePack))
	if err != nil {
		return err
	}

	edges := []struct {
		from   *unit.Unit
		to     *unit.Unit
		factor int64
	}{
		{pack6, piece, 6},
		{pack12, piece, 12},
		{keg50, liter, 50},
	}
	for _, e := range edges {
		if err := ensureConversion(ctx, svc, log, e.from, e.to, decimal.NewFromInt(e.factor)); err != nil {
			return err
		}
	}

	if _, err := ensureTaxClass(ctx, svc, log, "TAX-STD", "Standard VAT", decimal.NewFromInt(18)); err != nil {
		return err
	}
	if _, err := ensureTaxClass(ctx, svc, log, "TAX-ZERO", "Zero-rated", decimal.Zero); err != nil {
		return err
	}

	return nil
}

// seedDemoData loads a small beverage assortment with opening stock.
// Products already present are left untouched, so re-running the seed
// does not double the opening balances.
func seedDemoData(ctx context.Context, svc *services, log *logger.Logger) error {
	piece, err := svc.units.FindBySymbol(ctx, "pcs")
	if err != nil {
		return fmt.Errorf("find piece unit: %w", err)
	}
	liter, err := svc.units.FindBySymbol(ctx, "l")
	if err != nil {
		return fmt.Errorf("find liter unit: %w", err)
	}
	pack6, err := svc.units.FindBySymbol(ctx, "cs6")
	if err != nil {
		return fmt.Errorf("find 6-pack unit: %w", err)
	}
	pack12, err := svc.units.FindBySymbol(ctx, "cs12")
	if err != nil {
		return fmt.Errorf("find 12-pack unit: %w", err)
	}
	keg50, err := svc.units.FindBySymbol(ctx, "keg50")
	if err != nil {
		return fmt.Errorf("find keg unit: %w", err)
	}

	softDrinks, err := ensureCategory(ctx, svc, log, "CAT-SOFT", "Soft Drinks")
	if err != nil {
		return err
	}
	beer, err := ensureCategory(ctx, svc, log, "CAT-BEER", "Beer")
	if err != nil {
		return err
	}

	stdVAT, err := svc.taxClasses.GetByCode(ctx, "TAX-STD")
	if err != nil {
		return fmt.Errorf("get standard tax class: %w", err)
	}

	if err := ensureSupplier(ctx, svc, log, "SUP-DEMO", "Brauerei Nord"); err != nil {
		return err
	}

	demos := []demoProduct{
		{
			code: "PRD-COLA-05", name: "Cola 0.5l", sku: "COLA-05",
			barcode:  "4600000000017",
			baseUnit: piece, category: softDrinks,
			price: "1.20", wholesale: "0.95", cost: "0.80",
			minStock: "24", maxStock: "480",
			saleUnits:   []*unit.Unit{pack6, pack12},
			defaultUnit: pack12,
			opening:     opening{qty: "20", unit: pack12},
		},
		{
			code: "PRD-WATER-15", name: "Still Water 1.5l", sku: "WATER-15",
			barcode:  "4600000000024",
			baseUnit: piece, category: softDrinks,
			price: "0.90", wholesale: "0.70", cost: "0.45",
			minStock: "12", maxStock: "360",
			saleUnits: []*unit.Unit{pack6},
			opening:   opening{qty: "30", unit: pack6},
		},
		{
			code: "PRD-LAGER", name: "Draft Lager", sku: "LAGER-DRAFT",
			baseUnit: liter, category: beer,
			price: "3.50", wholesale: "2.80", cost: "2.10",
			minStock: "50", maxStock: "500",
			saleUnits:   []*unit.Unit{keg50},
			defaultUnit: keg50,
			opening:     opening{qty: "4", unit: keg50},
		},
	}

	for _, d := range demos {
		d.taxClass = stdVAT
		if err := seedProduct(ctx, svc, log, d); err != nil {
			return fmt.Errorf("seed product %s: %w", d.code, err)
		}
	}

	return nil
}

type opening struct {
	qty  string
	unit *unit.Unit
}

type demoProduct struct {
	code, name, sku, barcode string
	baseUnit                 *unit.Unit
	category                 *category.Category
	taxClass                 *taxclass.TaxClass

	price, wholesale, cost string
	minStock, maxStock     string

	saleUnits   []*unit.Unit
	defaultUnit *unit.Unit
	opening     opening
}

func seedProduct(ctx context.Context, svc *services, log *logger.Logger, d demoProduct) error {
	if existing, err := svc.products.GetByCode(ctx, d.code); err == nil {
		log.Infow("product already exists, skipping", "code", d.code, "product_id", existing.ID)
		return nil
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check product exists: %w", err)
	}

	p := product.NewProduct(d.code, d.name, d.baseUnit.ID)
	p.Price = decimal.RequireFromString(d.price)
	p.WholesalePrice = decimal.RequireFromString(d.wholesale)
	p.CostPrice = decimal.RequireFromString(d.cost)
	p.MinStockLevel = decimal.RequireFromString(d.minStock)
	p.MaxStockLevel = decimal.RequireFromString(d.maxStock)
	if d.sku != "" {
		p.SKU = &d.sku
	}
	if d.barcode != "" {
		p.Barcode = &d.barcode
	}
	if d.category != nil {
		p.CategoryID = &d.category.ID
	}
	if d.taxClass != nil {
		p.TaxClassID = &d.taxClass.ID
	}

	if err := svc.products.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	for _, u := range d.saleUnits {
		pu := product.NewProductUnit(p.ID, u.ID)
		if err := svc.products.AddUnit(ctx, pu); err != nil {
			return fmt.Errorf("add unit %s: %w", u.Symbol, err)
		}
	}
	if d.defaultUnit != nil {
		if err := svc.products.SetDefaultUnit(ctx, p.ID, d.defaultUnit.ID); err != nil {
			return fmt.Errorf("set default unit: %w", err)
		}
	}

	if d.opening.unit != nil {
		unitID := d.opening.unit.ID
		_, err := svc.stock.RecordMovement(ctx, stock.RecordInput{
			ProductID:       p.ID,
			Type:            entity.MovementIn,
			Quantity:        decimal.RequireFromString(d.opening.qty),
			UnitID:          &unitID,
			ReferenceNumber: "SEED",
			Note:            "opening balance",
		})
		if err != nil {
			return fmt.Errorf("record opening balance: %w", err)
		}
	}

	log.Infow("seeded product",
		"code", d.code,
		"product_id", p.ID,
		"base_unit", d.baseUnit.Symbol,
	)
	return nil
}

func ensureUnit(ctx context.Context, svc *services, log *logger.Logger, u *unit.Unit) (*unit.Unit, error) {
	existing, err := svc.units.FindBySymbol(ctx, u.Symbol)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("check unit %s exists: %w", u.Symbol, err)
	}

	if err := svc.units.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create unit %s: %w", u.Symbol, err)
	}
	log.Infow("seeded unit", "symbol", u.Symbol, "unit_id", u.ID)
	return u, nil
}

func ensureConversion(ctx context.Context, svc *services, log *logger.Logger, from, to *unit.Unit, factor decimal.Decimal) error {
	existing, err := svc.units.ActiveConversionFrom(ctx, from.ID)
	if err == nil && existing != nil {
		return nil
	}
	if err != nil && !apperror.IsNotFound(err) {
		return fmt.Errorf("check conversion from %s: %w", from.Symbol, err)
	}

	conv := unit.NewConversion(from.ID, to.ID, factor)
	if err := svc.units.CreateConversion(ctx, conv); err != nil {
		return fmt.Errorf("create conversion %s -> %s: %w", from.Symbol, to.Symbol, err)
	}
	log.Infow("seeded conversion",
		"from", from.Symbol,
		"to", to.Symbol,
		"factor", factor.String(),
	)
	return nil
}

func ensureSupplier(ctx context.Context, svc *services, log *logger.Logger, code, name string) error {
	if _, err := svc.suppliers.GetByCode(ctx, code); err == nil {
		return nil
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check supplier %s exists: %w", code, err)
	}

	s := supplier.NewSupplier(code, name)
	if err := svc.suppliers.Create(ctx, s); err != nil {
		return fmt.Errorf("create supplier %s: %w", code, err)
	}
	log.Infow("seeded supplier", "code", code, "supplier_id", s.ID)
	return nil
}

func ensureCategory(ctx context.Context, svc *services, log *logger.Logger, code, name string) (*category.Category, error) {
	existing, err := svc.categories.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("check category %s exists: %w", code, err)
	}

	c := category.NewCategory(code, name)
	if err := svc.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category %s: %w", code, err)
	}
	log.Infow("seeded category", "code", code, "category_id", c.ID)
	return c, nil
}

func ensureTaxClass(ctx context.Context, svc *services, log *logger.Logger, code, name string, rate decimal.Decimal) (*taxclass.TaxClass, error) {
	existing, err := svc.taxClasses.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("check tax class %s exists: %w", code, err)
	}

	t := taxclass.NewTaxClass(code, name, rate)
	if err := svc.taxClasses.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create tax class %s: %w", code, err)
	}
	log.Infow("seeded tax class", "code", code, "rate", rate.String())
	return t, nil
}
