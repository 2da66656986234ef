package domain

import (
	"fmt"
	"strings"
)

// RawFormat is a single format entry as reported by yt-dlp --dump-json
type RawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Height         *int     `json:"height"`
	Width          *int     `json:"width"`
	TBR            *float64 `json:"tbr"`
	FileSize       *float64 `json:"filesize"`
	FileSizeApprox *float64 `json:"filesize_approx"`
	FormatNote     *string  `json:"format_note"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
}

// RawMetadata is the subset of the yt-dlp info JSON the analyzer consumes
type RawMetadata struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Uploader    string      `json:"uploader"`
	Thumbnail   string      `json:"thumbnail"`
	Description string      `json:"description"`
	Duration    float64     `json:"duration"`
	Extractor   string      `json:"extractor"`
	WebpageURL  string      `json:"webpage_url"`
	UploadDate  string      `json:"upload_date"`
	Categories  []string    `json:"categories"`
	Formats     []RawFormat `json:"formats"`
}

// MediaFormat is one downloadable variant of a video
type MediaFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Height         *int     `json:"height,omitempty"`
	Width          *int     `json:"width,omitempty"`
	TBR            *float64 `json:"tbr,omitempty"`
	FileSize       *int64   `json:"filesize,omitempty"`
	FileSizeApprox *int64   `json:"filesize_approx,omitempty"`
	FormatNote     string   `json:"format_note,omitempty"`
	VCodec         string   `json:"vcodec,omitempty"`
	ACodec         string   `json:"acodec,omitempty"`
	QualityLabel   string   `json:"quality_label,omitempty"`
}

// MediaMetadata describes one analyzed URL
type MediaMetadata struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Uploader    string        `json:"uploader"`
	Thumbnail   string        `json:"thumbnail"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Extractor   string        `json:"extractor"`
	WebpageURL  string        `json:"webpage_url"`
	UploadDate  string        `json:"upload_date"`
	Categories  []string      `json:"categories"`
	Formats     []MediaFormat `json:"formats"`
}

// MetadataSummary is the part of MediaMetadata kept in search history
type MetadataSummary struct {
	Title     string  `json:"title,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// FormatFilter selects a category of formats
type FormatFilter string

const (
	FilterAll   FormatFilter = "all"
	FilterVideo FormatFilter = "video"
	FilterAudio FormatFilter = "audio"
)

// HDMinHeight is the lowest height bucketed as HD
const HDMinHeight = 720

// FormatBuckets groups formats the way the format picker presents them
type FormatBuckets struct {
	HD    []MediaFormat `json:"hd"`
	SD    []MediaFormat `json:"sd"`
	Audio []MediaFormat `json:"audio"`
}

// Normalize drops incomplete entries and derives size and quality label.
// Order of the retained entries is preserved.
func Normalize(raw []RawFormat) []MediaFormat {
	formats := make([]MediaFormat, 0, len(raw))
	for _, r := range raw {
		if r.FormatID == "" || r.Ext == "" {
			continue
		}

		f := MediaFormat{
			FormatID:       r.FormatID,
			Ext:            r.Ext,
			Height:         r.Height,
			Width:          r.Width,
			TBR:            r.TBR,
			FileSizeApprox: toBytes(r.FileSizeApprox),
			VCodec:         r.VCodec,
			ACodec:         r.ACodec,
		}
		if r.FormatNote != nil {
			f.FormatNote = *r.FormatNote
		}

		// Exact size wins over the approximation
		f.FileSize = toBytes(r.FileSize)
		if f.FileSize == nil {
			f.FileSize = f.FileSizeApprox
		}

		f.QualityLabel = QualityLabel(f)
		formats = append(formats, f)
	}
	return formats
}

// QualityLabel returns "{height}p" when both dimensions are known,
// otherwise the extractor's note (possibly empty)
func QualityLabel(f MediaFormat) string {
	if positive(f.Height) && positive(f.Width) {
		return fmt.Sprintf("%dp", *f.Height)
	}
	return f.FormatNote
}

// NormalizeMetadata converts the extractor payload into MediaMetadata.
// inputURL is used when the extractor reports no canonical page URL.
func NormalizeMetadata(raw RawMetadata, inputURL string) *MediaMetadata {
	webpageURL := raw.WebpageURL
	if webpageURL == "" {
		webpageURL = inputURL
	}
	categories := raw.Categories
	if categories == nil {
		categories = []string{}
	}

	return &MediaMetadata{
		ID:          raw.ID,
		Title:       raw.Title,
		Uploader:    raw.Uploader,
		Thumbnail:   raw.Thumbnail,
		Description: raw.Description,
		Duration:    raw.Duration,
		Extractor:   raw.Extractor,
		WebpageURL:  webpageURL,
		UploadDate:  raw.UploadDate,
		Categories:  categories,
		Formats:     Normalize(raw.Formats),
	}
}

// Summary returns the fields recorded in search history
func (m *MediaMetadata) Summary() *MetadataSummary {
	if m == nil {
		return nil
	}
	return &MetadataSummary{
		Title:     m.Title,
		Thumbnail: m.Thumbnail,
		Duration:  m.Duration,
	}
}

// FindFormat looks up a format by id
func (m *MediaMetadata) FindFormat(formatID string) (MediaFormat, bool) {
	for _, f := range m.Formats {
		if f.FormatID == formatID {
			return f, true
		}
	}
	return MediaFormat{}, false
}

// Size returns the best known byte size of the format
func (f MediaFormat) Size() *int64 {
	if f.FileSize != nil {
		return f.FileSize
	}
	return f.FileSizeApprox
}

// IsAudioOnly reports whether the format carries no video track
func IsAudioOnly(f MediaFormat) bool {
	if f.VCodec != "" {
		return f.VCodec == "none"
	}
	return !positive(f.Height) && !positive(f.Width)
}

// ValidateFormatFilter checks if a format filter is valid
func ValidateFormatFilter(filter FormatFilter) bool {
	return filter == FilterAll || filter == FilterVideo || filter == FilterAudio
}

// FilterFormats keeps the formats matching filter. The placeholder
// format id "0" is never offered.
func FilterFormats(formats []MediaFormat, filter FormatFilter) []MediaFormat {
	result := make([]MediaFormat, 0, len(formats))
	for _, f := range formats {
		if f.Ext == "" || f.FormatID == "" || f.FormatID == "0" {
			continue
		}
		switch filter {
		case FilterAudio:
			if !IsAudioOnly(f) {
				continue
			}
		case FilterVideo:
			if IsAudioOnly(f) {
				continue
			}
		}
		result = append(result, f)
	}
	return result
}

// BucketFormats splits formats into HD, SD and audio groups
func BucketFormats(formats []MediaFormat) FormatBuckets {
	buckets := FormatBuckets{
		HD:    []MediaFormat{},
		SD:    []MediaFormat{},
		Audio: []MediaFormat{},
	}
	for _, f := range formats {
		if IsAudioOnly(f) {
			buckets.Audio = append(buckets.Audio, f)
			continue
		}
		height := 0
		if f.Height != nil {
			height = *f.Height
		}
		switch {
		case height >= HDMinHeight:
			buckets.HD = append(buckets.HD, f)
		case height > 0:
			buckets.SD = append(buckets.SD, f)
		}
	}
	return buckets
}

// ContentTypeForExt maps a container extension to the MIME type served
// for its byte stream
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "mp3":
		return "audio/mpeg"
	case "m4a":
		return "audio/mp4"
	case "aac":
		return "audio/aac"
	case "ogg":
		return "audio/ogg"
	case "wav":
		return "audio/wav"
	case "webm":
		return "video/webm"
	case "3gp":
		return "video/3gpp"
	case "mov":
		return "video/quicktime"
	case "flv":
		return "video/x-flv"
	default:
		return "video/mp4"
	}
}

func toBytes(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func positive(v *int) bool {
	return v != nil && *v > 0
}
