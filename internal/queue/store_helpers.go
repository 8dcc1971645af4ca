package queue

import (
	"strings"
	"time"
)

const itemColumns = "id, source_path, original_name, extension, size_at_dispatch, status, category, rendered_name, final_path, error_kind, error_message, classify_attempts, move_attempts, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item       Item
		statusStr  string
		kindStr    string
		createdRaw string
		updatedRaw string
	)

	if err := scanner.Scan(
		&item.ID,
		&item.SourcePath,
		&item.OriginalName,
		&item.Extension,
		&item.SizeAtDispatch,
		&statusStr,
		&item.Category,
		&item.RenderedName,
		&item.FinalPath,
		&kindStr,
		&item.ErrorMessage,
		&item.ClassifyAttempts,
		&item.MoveAttempts,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item.Status = Status(statusStr)
	item.ErrorKind = ErrorKind(kindStr)

	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}

func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Parse(time.RFC3339, value)
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
