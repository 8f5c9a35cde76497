package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for request fields. The content manager enforces the
// domain rules; these only bound request sizes.
const (
	maxTitleLen    = 300
	maxSlugLen     = 300
	maxBodyLen     = 100_000
	maxTagLen      = 100
	maxTags        = 50
	maxQueryLen    = 200
	maxResultLimit = 100
)

// validateContent checks create inputs and returns the first error found.
func validateContent(title, slug, body string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(body) > maxBodyLen {
		return "Body is too long (max 100,000 characters)."
	}
	return ""
}

// validateUpdate checks the fields present in a partial update.
func validateUpdate(req *updateRequest) string {
	if req.Title != nil {
		if msg := validateContent(*req.Title, "", ""); msg != "" {
			return msg
		}
	}
	if req.Slug != nil && utf8.RuneCountInString(*req.Slug) > maxSlugLen {
		return "Slug is too long (max 300 characters)."
	}
	if req.Body != nil && utf8.RuneCountInString(*req.Body) > maxBodyLen {
		return "Body is too long (max 100,000 characters)."
	}
	if req.Tags != nil {
		return validateTags(*req.Tags)
	}
	return ""
}

// validateTags bounds the tag list of a request.
func validateTags(tags []string) string {
	if len(tags) > maxTags {
		return "Too many tags (max 50)."
	}
	for _, t := range tags {
		if utf8.RuneCountInString(t) > maxTagLen {
			return "Tag is too long (max 100 characters)."
		}
	}
	return ""
}

// validateQuery checks a search query string.
func validateQuery(q string) string {
	if strings.TrimSpace(q) == "" {
		return "Query is required."
	}
	if utf8.RuneCountInString(q) > maxQueryLen {
		return "Query is too long (max 200 characters)."
	}
	return ""
}
