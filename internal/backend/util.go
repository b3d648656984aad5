package backend

import (
	"errors"
	"sort"

	"github.com/onnwee/agrisync/backend/internal/models"
)

func isNotFound(err error) bool { return errors.Is(err, models.ErrNotFound) }

func sortNewestFirst(rows []models.Notification) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}
