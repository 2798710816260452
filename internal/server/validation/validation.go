package validation

import (
	"errors"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

type URLValidator struct {
	MaxURLLength   int
	AllowedSchemes []string
}

var (
	ErrEmptyQuery     = errors.New("search query cannot be empty")
	ErrQueryTooLong   = errors.New("search query too long")
	ErrQueryTooShort  = errors.New("search query is too short")
	ErrURLTooLong     = errors.New("URL exceeds maximum length")
	ErrInvalidURL     = errors.New("invalid URL format")
	ErrUnsupportedURL = errors.New("unsupported URL scheme")
)

func NewURLValidator() *URLValidator {
	return &URLValidator{
		MaxURLLength:   2048,
		AllowedSchemes: []string{"http", "https"},
	}
}

func (uv *URLValidator) ValidateURL(uri string) error {
	if len(uri) > uv.MaxURLLength {
		return ErrURLTooLong
	}

	parsedURL, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || parsedURL.Host == "" {
		return ErrInvalidURL
	}

	if !slices.Contains(uv.AllowedSchemes, strings.ToLower(parsedURL.Scheme)) {
		return ErrUnsupportedURL
	}

	return nil
}

type QueryValidator struct {
	MaxQueryLength int
	MinQueryLength int
}

func NewQueryValidator() *QueryValidator {
	return &QueryValidator{
		MaxQueryLength: 256,
		MinQueryLength: 2,
	}
}

func (qv *QueryValidator) ValidateQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}

	length := utf8.RuneCountInString(query)
	if length < qv.MinQueryLength {
		return ErrQueryTooShort
	}

	if length > qv.MaxQueryLength {
		return ErrQueryTooLong
	}

	return nil
}
