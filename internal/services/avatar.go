package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/gcs"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

type AvatarService interface {
	CreateAndUploadAvatar(ctx context.Context, tx *gorm.DB, account *types.Account) error
	GenerateAvatar(account *types.Account) (bytes.Buffer, error)
}

type avatarService struct {
	db            *gorm.DB
	log           *logger.Logger
	bucketService gcs.BucketService

	bgColors   []color.NRGBA
	colorByHex map[string]color.NRGBA

	fontFace font.Face
}

// defaultPalette is used when AVATAR_COLORS_JSON_PATH is unset.
var defaultPalette = []color.NRGBA{
	{R: 0x1B, G: 0x6C, B: 0x8C, A: 0xFF}, // deep teal
	{R: 0x2E, G: 0x4A, B: 0x7D, A: 0xFF}, // night blue
	{R: 0x7A, G: 0x3E, B: 0x9D, A: 0xFF}, // aurora violet
	{R: 0x1F, G: 0x7A, B: 0x4C, A: 0xFF}, // spruce green
	{R: 0xB4, G: 0x4E, B: 0x2C, A: 0xFF}, // ember
	{R: 0x8C, G: 0x1B, B: 0x52, A: 0xFF}, // magenta dusk
}

func NewAvatarService(db *gorm.DB, log *logger.Logger, bucketService gcs.BucketService) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	bgColors := defaultPalette
	if path := strings.TrimSpace(os.Getenv("AVATAR_COLORS_JSON_PATH")); path != "" {
		loaded, err := loadColorsFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not load avatar colors: %w", err)
		}
		if len(loaded) > 0 {
			bgColors = loaded
		}
	}

	colorByHex := make(map[string]color.NRGBA, len(bgColors))
	for _, c := range bgColors {
		colorByHex[strings.ToUpper(nrgbaToHex(c))] = c
	}

	fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}
	serviceLog.Info("Loading avatar font", "font", fontPath)

	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		db:            db,
		log:           serviceLog,
		bucketService: bucketService,
		bgColors:      bgColors,
		colorByHex:    colorByHex,
		fontFace:      face,
	}, nil
}

func (as *avatarService) CreateAndUploadAvatar(ctx context.Context, tx *gorm.DB, account *types.Account) error {
	as.ensureAvatarColor(account)

	buf, err := as.GenerateAvatar(account)
	if err != nil {
		return err
	}

	oldKey := strings.TrimSpace(account.AvatarKey)

	// Versioned key so CDN caches never serve a stale avatar.
	newKey := fmt.Sprintf("%s/%d.png", account.ID.String(), time.Now().UnixNano())

	if err := as.bucketService.Upload(ctx, gcs.CategoryAvatar, newKey, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("upload avatar: %w", err)
	}

	account.AvatarKey = newKey
	account.AvatarURL = as.bucketService.PublicURL(gcs.CategoryAvatar, newKey)

	// Best-effort delete of the replaced object.
	if oldKey != "" && oldKey != newKey {
		if err := as.bucketService.Delete(ctx, gcs.CategoryAvatar, oldKey); err != nil {
			as.log.Warn("failed to delete old avatar (ignored)", "oldKey", oldKey, "error", err)
		}
	}
	return nil
}

func (as *avatarService) GenerateAvatar(account *types.Account) (bytes.Buffer, error) {
	const size = 512
	as.ensureAvatarColor(account)

	dc := gg.NewContext(size, size)

	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	base := as.pickColor(account.AvatarColor)
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	initials := computeInitials(account.Name)

	dc.SetFontFace(as.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(size)/2, float64(size)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2), cy+(th/2)-10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("encode png: %w", err)
	}
	return buf, nil
}

func (as *avatarService) ensureAvatarColor(account *types.Account) {
	if strings.TrimSpace(account.AvatarColor) != "" {
		n := normalizeHex(account.AvatarColor)
		if n != "" {
			if _, ok := as.colorByHex[n]; ok {
				account.AvatarColor = n
				return
			}
		}
	}
	pick := as.bgColors[rand.Intn(len(as.bgColors))]
	account.AvatarColor = nrgbaToHex(pick)
}

func (as *avatarService) pickColor(hexStr string) color.NRGBA {
	h := normalizeHex(hexStr)
	if h != "" {
		if c, ok := as.colorByHex[h]; ok {
			return c
		}
	}
	return as.bgColors[rand.Intn(len(as.bgColors))]
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	s = strings.ToUpper(s)
	if len(s) != 7 {
		return ""
	}
	if _, _, _, err := parseHexRGB(s); err != nil {
		return ""
	}
	return s
}

func parseHexRGB(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("expected 6 hex chars")
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid hex")
	}
	return raw[0], raw[1], raw[2], nil
}

func nrgbaToHex(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// computeInitials takes the first letter of the first and last words
// of the display name.
func computeInitials(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	switch len(fields) {
	case 0:
		return "?"
	case 1:
		return strings.ToUpper(fields[0][:1])
	default:
		first := strings.ToUpper(fields[0][:1])
		last := strings.ToUpper(fields[len(fields)-1][:1])
		return first + last
	}
}

func loadColorsFromFile(jsonPath string) ([]color.NRGBA, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read file error: %w", err)
	}
	var colors []color.NRGBA
	if err := json.Unmarshal(data, &colors); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}
	return colors, nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ttf: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
