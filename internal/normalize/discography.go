package normalize

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/models"
)

// DiscographyEntry normalizes one album or single of an artist page. The year comes from
// "year", falling back to the "type" label ("EP", "Single") when there is none.
func (n *Normalizer) DiscographyEntry(raw gjson.Result, category string) (entry models.DiscographyEntry, ok bool) {
	defer n.guard("discography entry", raw, &ok)

	if !raw.IsObject() {
		return models.DiscographyEntry{}, false
	}

	return models.DiscographyEntry{
		ID:       firstString(raw, "browseId"),
		Title:    raw.Get("title").String(),
		Year:     firstString(raw, "year", "type"),
		Category: category,
		ThumbURL: thumbnailOf(raw),
	}, true
}

// Discography normalizes a list of albums or singles, tagging each with category.
func (n *Normalizer) Discography(items gjson.Result, category string) []models.DiscographyEntry {
	return lo.FilterMap(list(items), func(item gjson.Result, _ int) (models.DiscographyEntry, bool) {
		return n.DiscographyEntry(item, category)
	})
}

// yearDigits keeps the digits of year without leading zeros.
func yearDigits(year string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, year)
	return strings.TrimLeft(digits, "0")
}

// YearKey is the integer formed by the digits of year, 0 when it has none and
// [math.MaxInt] when it does not fit in an int.
func YearKey(year string) int {
	digits := yearDigits(year)
	if digits == "" {
		return 0
	}

	v, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	return v
}

// compareYears orders two year fields by the value of their digits, without an upper bound.
func compareYears(a, b string) int {
	da, db := yearDigits(a), yearDigits(b)
	if c := cmp.Compare(len(da), len(db)); c != 0 {
		return c
	}
	return strings.Compare(da, db)
}

// SortDiscography orders entries by the digits of their year, newest first. Ties keep their order.
func SortDiscography(entries []models.DiscographyEntry) {
	slices.SortStableFunc(entries, func(a, b models.DiscographyEntry) int {
		return compareYears(b.Year, a.Year)
	})
}

// ArtistDetail assembles an artist page from the raw artist response and a discography
// that the caller has already merged (inline or fully fetched lists).
func (n *Normalizer) ArtistDetail(raw gjson.Result, discography []models.DiscographyEntry) models.ArtistDetail {
	songs := raw.Get("songs")
	if discography == nil {
		discography = []models.DiscographyEntry{}
	}
	SortDiscography(discography)

	return models.ArtistDetail{
		Name:              raw.Get("name").String(),
		Description:       optString(raw.Get("description")),
		ThumbURL:          thumbnailOf(raw),
		TopSongs:          n.Tracks(songs.Get("results"), Overrides{}),
		Discography:       discography,
		Related:           n.Artists(raw.Get("related.results")),
		SeeAllSongsID:     optString(songs.Get("browseId")),
		SeeAllSongsParams: optString(songs.Get("params")),
		SeeAllAlbumsID:    optString(raw.Get("albums.browseId")),
		SeeAllSinglesID:   optString(raw.Get("singles.browseId")),
	}
}
