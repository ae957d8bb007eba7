package memory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"shopflow/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed is the initial state of a memory store, as read from a YAML file.
type Seed struct {
	Products []SeedProduct  `yaml:"products"`
	Wallets  []SeedWallet   `yaml:"wallets"`
	Carts    []SeedCartLine `yaml:"carts"`
}

// SeedProduct is a catalogue product with its opening stock.
type SeedProduct struct {
	ID            int64  `yaml:"id"`
	Name          string `yaml:"name"`
	Image         string `yaml:"image"`
	SpecName      string `yaml:"specName"`
	UnitName      string `yaml:"unitName"`
	SalePrice     string `yaml:"salePrice"`
	DiscountPrice string `yaml:"discountPrice"`
	Stock         int    `yaml:"stock"`
}

// SeedWallet is a user's opening balance.
type SeedWallet struct {
	UserID  int64  `yaml:"userId"`
	Balance string `yaml:"balance"`
}

// SeedCartLine is a line waiting in a user's cart.
type SeedCartLine struct {
	ID        int64 `yaml:"id"`
	UserID    int64 `yaml:"userId"`
	ProductID int64 `yaml:"productId"`
	Quantity  int   `yaml:"quantity"`
}

// LoadSeedFile reads a seed from the YAML file at path.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return DecodeSeed(f)
}

// DecodeSeed reads a seed from YAML. Unknown fields are rejected.
func DecodeSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	return &seed, nil
}

// Apply loads the seed into s.
func (seed *Seed) Apply(s *Store) error {
	for _, p := range seed.Products {
		product, err := p.product()
		if err != nil {
			return err
		}
		s.PutProduct(product)
	}

	for _, w := range seed.Wallets {
		balance, err := decimal.NewFromString(w.Balance)
		if err != nil || balance.IsNegative() {
			return fmt.Errorf("invalid balance %q for user %d", w.Balance, w.UserID)
		}
		if balance.IsZero() {
			continue
		}
		if err := s.Fund(w.UserID, balance); err != nil {
			return err
		}
	}

	for _, c := range seed.Carts {
		if c.Quantity <= 0 {
			return fmt.Errorf("cart line %d: %w", c.ID, model.ErrInvalidQuantity)
		}
		s.PutCartLine(model.CartLine{ID: c.ID, UserID: c.UserID, ProductID: c.ProductID, Quantity: c.Quantity})
	}

	s.logger.Info().
		Int("products", len(seed.Products)).
		Int("wallets", len(seed.Wallets)).
		Int("cart_lines", len(seed.Carts)).
		Msg("memory store seeded")

	return nil
}

func (p SeedProduct) product() (model.Product, error) {
	if p.ID <= 0 || p.Name == "" {
		return model.Product{}, fmt.Errorf("product %d: id and name are required", p.ID)
	}
	if p.Stock < 0 {
		return model.Product{}, fmt.Errorf("product %d: stock cannot be negative", p.ID)
	}

	salePrice, err := decimal.NewFromString(p.SalePrice)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %d: invalid sale price %q", p.ID, p.SalePrice)
	}

	var discount decimal.NullDecimal
	if p.DiscountPrice != "" {
		d, err := decimal.NewFromString(p.DiscountPrice)
		if err != nil {
			return model.Product{}, fmt.Errorf("product %d: invalid discount price %q", p.ID, p.DiscountPrice)
		}
		discount = decimal.NewNullDecimal(d)
	}

	return model.Product{
		ID:            p.ID,
		Name:          p.Name,
		Image:         p.Image,
		SpecName:      p.SpecName,
		UnitName:      p.UnitName,
		SalePrice:     salePrice,
		DiscountPrice: discount,
		StockQuantity: p.Stock,
	}, nil
}
