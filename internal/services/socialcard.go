package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"gorm.io/gorm"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/gcs"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// SocialCardService renders the 1200x630 share image used by session
// pages for link previews.
type SocialCardService interface {
	CreateAndUploadSessionCard(ctx context.Context, tx *gorm.DB, session *types.Session, speakerName string) error
	GenerateSessionCard(session *types.Session, speakerName string) (bytes.Buffer, error)
}

type socialCardService struct {
	db            *gorm.DB
	log           *logger.Logger
	bucketService gcs.BucketService
	siteName      string

	titleFace font.Face
	bodyFace  font.Face
}

func NewSocialCardService(db *gorm.DB, log *logger.Logger, bucketService gcs.BucketService) (SocialCardService, error) {
	serviceLog := log.With("service", "SocialCardService")

	fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}

	titleFace, err := loadFontFace(fontPath, 64)
	if err != nil {
		return nil, fmt.Errorf("could not load card title font: %w", err)
	}
	bodyFace, err := loadFontFace(fontPath, 34)
	if err != nil {
		return nil, fmt.Errorf("could not load card body font: %w", err)
	}

	siteName := strings.TrimSpace(os.Getenv("SITE_NAME"))
	if siteName == "" {
		siteName = "BorealisConf"
	}

	return &socialCardService{
		db:            db,
		log:           serviceLog,
		bucketService: bucketService,
		siteName:      siteName,
		titleFace:     titleFace,
		bodyFace:      bodyFace,
	}, nil
}

func (sc *socialCardService) CreateAndUploadSessionCard(ctx context.Context, tx *gorm.DB, session *types.Session, speakerName string) error {
	buf, err := sc.GenerateSessionCard(session, speakerName)
	if err != nil {
		return err
	}

	oldKey := strings.TrimSpace(session.CardKey)
	newKey := fmt.Sprintf("%s/%d.png", session.ID.String(), time.Now().UnixNano())

	if err := sc.bucketService.Upload(ctx, gcs.CategoryCard, newKey, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("upload session card: %w", err)
	}

	session.CardKey = newKey
	session.CardURL = sc.bucketService.PublicURL(gcs.CategoryCard, newKey)

	if oldKey != "" && oldKey != newKey {
		if err := sc.bucketService.Delete(ctx, gcs.CategoryCard, oldKey); err != nil {
			sc.log.Warn("failed to delete old session card (ignored)", "oldKey", oldKey, "error", err)
		}
	}
	return nil
}

func (sc *socialCardService) GenerateSessionCard(session *types.Session, speakerName string) (bytes.Buffer, error) {
	const width, height = 1200, 630

	dc := gg.NewContext(width, height)

	dc.SetColor(color.NRGBA{R: 0x10, G: 0x1B, B: 0x2E, A: 0xFF})
	dc.DrawRectangle(0, 0, width, height)
	dc.Fill()

	// Accent band along the bottom.
	dc.SetColor(color.NRGBA{R: 0x2E, G: 0xB8, B: 0x8A, A: 0xFF})
	dc.DrawRectangle(0, height-16, width, 16)
	dc.Fill()

	dc.SetFontFace(sc.bodyFace)
	dc.SetColor(color.NRGBA{R: 0x9F, G: 0xB3, B: 0xC8, A: 0xFF})
	dc.DrawString(sc.siteName, 80, 110)

	dc.SetFontFace(sc.titleFace)
	dc.SetColor(color.White)
	lines := wrapLines(dc, session.Title, width-160)
	y := 220.0
	for i, line := range lines {
		if i == 3 {
			break
		}
		dc.DrawString(line, 80, y)
		y += 84
	}

	dc.SetFontFace(sc.bodyFace)
	dc.SetColor(color.NRGBA{R: 0xDD, G: 0xE6, B: 0xEF, A: 0xFF})
	footer := speakerName
	if session.Track != "" {
		footer = fmt.Sprintf("%s · %s", speakerName, session.Track)
	}
	dc.DrawString(footer, 80, float64(height)-86)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("encode png: %w", err)
	}
	return buf, nil
}

func wrapLines(dc *gg.Context, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if w, _ := dc.MeasureString(candidate); w > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	return append(lines, current)
}
