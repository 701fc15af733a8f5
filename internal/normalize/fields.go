package normalize

import (
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/models"
)

// truthy reports whether r holds a usable value: present, not null, not false,
// not zero and not an empty string, list or object.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	default:
		return true
	}
}

// first returns the first truthy value among keys of obj.
func first(obj gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := obj.Get(key); truthy(v) {
			return v
		}
	}
	return gjson.Result{}
}

// firstString is [first] rendered as a string, "" when nothing matches.
func firstString(obj gjson.Result, keys ...string) string {
	return first(obj, keys...).String()
}

// optString is the value of r as a string pointer, nil when absent or null.
func optString(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}

// list returns the elements of r when it is an array and nil otherwise.
func list(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

// Skip drops the first offset elements of a raw list. Anything that is not a list, or a list
// with no more than offset elements, yields an empty list.
func Skip(items gjson.Result, offset int) gjson.Result {
	elems := list(items)
	if offset < 0 {
		offset = 0
	}
	if len(elems) <= offset {
		return gjson.Parse("[]")
	}

	raws := lo.Map(elems[offset:], func(e gjson.Result, _ int) string { return e.Raw })
	return gjson.Parse("[" + strings.Join(raws, ",") + "]")
}

// imageURL picks a url out of an image value: the last entry of a list of sized images
// (the largest), the url of a single image object, or a bare url string.
func imageURL(r gjson.Result) string {
	switch {
	case r.IsArray():
		images := r.Array()
		if len(images) == 0 {
			return ""
		}
		return imageURL(images[len(images)-1])
	case r.IsObject():
		return r.Get("url").String()
	case r.Type == gjson.String:
		return r.Str
	}
	return ""
}

// thumbnailOf reads an item's own image from "thumbnails" or "thumbnail".
func thumbnailOf(item gjson.Result) string {
	return imageURL(first(item, "thumbnails", "thumbnail"))
}

// trackID reads the track id from "videoId" or "id".
func trackID(item gjson.Result) string {
	return firstString(item, "videoId", "id")
}

// credits reads artist names and ids from the "artists" list. Names default to
// [models.UnknownArtist]; ids come from "id" or "browseId" and may be nil.
func credits(item gjson.Result) (names []string, ids []*string) {
	names, ids = []string{}, []*string{}
	artists := item.Get("artists")
	entries := list(artists)
	if artists.IsObject() {
		entries = []gjson.Result{artists}
	}

	for _, a := range entries {
		if a.Type == gjson.String {
			names = append(names, a.Str)
			ids = append(ids, nil)
			continue
		}

		name := firstString(a, "name")
		if name == "" {
			name = models.UnknownArtist
		}
		names = append(names, name)

		if id := firstString(a, "id", "browseId"); id != "" {
			ids = append(ids, &id)
		} else {
			ids = append(ids, nil)
		}
	}
	return names, ids
}

// creditNames is [credits] without the placeholder name, used for feed cards.
func creditNames(item gjson.Result) []string {
	names := []string{}
	for _, a := range list(item.Get("artists")) {
		if name := firstString(a, "name"); name != "" {
			names = append(names, name)
		} else if a.Type == gjson.String {
			names = append(names, a.Str)
		}
	}
	return names
}

// albumRef reads the album as a structured object ({name, id|browseId, thumbnails})
// or as a bare name string.
type albumRef struct {
	Name  string
	ID    *string
	Thumb string
}

func albumOf(item gjson.Result) albumRef {
	album := item.Get("album")
	switch {
	case album.IsObject():
		ref := albumRef{Name: album.Get("name").String(), Thumb: imageURL(album.Get("thumbnails"))}
		if id := firstString(album, "id", "browseId"); id != "" {
			ref.ID = &id
		}
		return ref
	case album.Type == gjson.String:
		return albumRef{Name: album.Str}
	}
	return albumRef{}
}

// durationOf reads "duration" or "length", defaulting to [models.DefaultDuration].
func durationOf(item gjson.Result) string {
	if d := firstString(item, "duration", "length"); d != "" {
		return d
	}
	return models.DefaultDuration
}
