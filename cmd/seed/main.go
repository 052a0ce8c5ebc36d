package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/borealisconf/borealis-backend/internal/data/db"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/pkg/slug"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// seed loads a YAML fixture of ticket types, speakers, and sessions
// into the database. Rows are matched by slug, so re-running against
// the same file is idempotent.

type fixture struct {
	TicketTypes []ticketTypeFixture `yaml:"ticket_types"`
	Speakers    []speakerFixture    `yaml:"speakers"`
}

type ticketTypeFixture struct {
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	PriceCents   int64      `yaml:"price_cents"`
	Currency     string     `yaml:"currency"`
	Capacity     int        `yaml:"capacity"`
	MaxPerOrder  int        `yaml:"max_per_order"`
	SalesOpenAt  *time.Time `yaml:"sales_open_at"`
	SalesCloseAt *time.Time `yaml:"sales_close_at"`
	Kind         string     `yaml:"kind"`
	Upsell       bool       `yaml:"upsell"`
	SortOrder    int        `yaml:"sort_order"`
	Active       *bool      `yaml:"active"`
}

type speakerFixture struct {
	Name      string            `yaml:"name"`
	Title     string            `yaml:"title"`
	Company   string            `yaml:"company"`
	Bio       string            `yaml:"bio"`
	Links     map[string]string `yaml:"links"`
	Featured  bool              `yaml:"featured"`
	Published bool              `yaml:"published"`
	Sessions  []sessionFixture  `yaml:"sessions"`
}

type sessionFixture struct {
	Title     string     `yaml:"title"`
	Abstract  string     `yaml:"abstract"`
	Format    string     `yaml:"format"`
	Track     string     `yaml:"track"`
	Room      string     `yaml:"room"`
	StartsAt  *time.Time `yaml:"starts_at"`
	EndsAt    *time.Time `yaml:"ends_at"`
	Published bool       `yaml:"published"`
}

func main() {
	var path string
	flag.StringVar(&path, "file", "seed.yaml", "path to the fixture file")
	flag.Parse()

	log, err := logger.New("development")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("Could not read fixture", "path", path, "error", err)
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		log.Fatal("Could not parse fixture", "path", path, "error", err)
	}

	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Could not connect to database", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Automigrate failed", "error", err)
	}
	gdb := dbService.DB()

	created, skipped := 0, 0
	for _, tt := range fx.TicketTypes {
		ok, err := seedTicketType(gdb, tt)
		if err != nil {
			log.Fatal("Seeding ticket type failed", "name", tt.Name, "error", err)
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}
	for _, sp := range fx.Speakers {
		n, s, err := seedSpeaker(gdb, sp)
		if err != nil {
			log.Fatal("Seeding speaker failed", "name", sp.Name, "error", err)
		}
		created += n
		skipped += s
	}

	log.Info("Seed complete", "created", created, "skipped", skipped)
}

func seedTicketType(gdb *gorm.DB, fx ticketTypeFixture) (bool, error) {
	s := slug.Make(fx.Name)
	var existing types.TicketType
	err := gdb.Where("slug = ?", s).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	active := true
	if fx.Active != nil {
		active = *fx.Active
	}
	currency := fx.Currency
	if currency == "" {
		currency = "EUR"
	}
	maxPerOrder := fx.MaxPerOrder
	if maxPerOrder <= 0 {
		maxPerOrder = 10
	}
	kind := fx.Kind
	if kind == "" {
		kind = types.TicketKindConference
	}
	row := &types.TicketType{
		Name:         fx.Name,
		Slug:         s,
		Description:  fx.Description,
		PriceCents:   fx.PriceCents,
		Currency:     currency,
		Capacity:     fx.Capacity,
		MaxPerOrder:  maxPerOrder,
		SalesOpenAt:  fx.SalesOpenAt,
		SalesCloseAt: fx.SalesCloseAt,
		Kind:         kind,
		Upsell:       fx.Upsell,
		SortOrder:    fx.SortOrder,
		Active:       active,
	}
	return true, gdb.Create(row).Error
}

func seedSpeaker(gdb *gorm.DB, fx speakerFixture) (created, skipped int, err error) {
	s := slug.Make(fx.Name)
	var speaker types.Speaker
	err = gdb.Where("slug = ?", s).First(&speaker).Error
	switch {
	case err == nil:
		skipped++
	case errors.Is(err, gorm.ErrRecordNotFound):
		links, merr := json.Marshal(fx.Links)
		if merr != nil {
			return created, skipped, merr
		}
		speaker = types.Speaker{
			Name:      fx.Name,
			Slug:      s,
			Title:     fx.Title,
			Company:   fx.Company,
			Bio:       fx.Bio,
			Links:     links,
			Featured:  fx.Featured,
			Published: fx.Published,
		}
		if err := gdb.Create(&speaker).Error; err != nil {
			return created, skipped, err
		}
		created++
	default:
		return created, skipped, err
	}

	for _, sess := range fx.Sessions {
		sessSlug := slug.Make(sess.Title)
		var existing types.Session
		err := gdb.Where("slug = ?", sessSlug).First(&existing).Error
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, skipped, err
		}
		format := sess.Format
		if format == "" {
			format = types.SessionFormatTalk
		}
		row := &types.Session{
			SpeakerID: speaker.ID,
			Title:     sess.Title,
			Slug:      sessSlug,
			Abstract:  sess.Abstract,
			Format:    format,
			Track:     sess.Track,
			Room:      sess.Room,
			StartsAt:  sess.StartsAt,
			EndsAt:    sess.EndsAt,
			Published: sess.Published,
		}
		if err := gdb.Create(row).Error; err != nil {
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}
