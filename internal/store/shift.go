package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pharmacy-ops/internal/models"

	"go.uber.org/zap"
)

// Keys of the shift state file
const (
	keyShiftType      = "SHIFT_TYPE"
	keyShiftStartTime = "SHIFT_START_TIME"
	keyOrderID        = "ORDER_ID"
)

// ShiftState is the persisted identity of the open shift
type ShiftState struct {
	Type      models.ShiftType
	StartTime time.Time
}

// LoadShiftState reads the shift state file. found is false when the file is
// absent or holds no usable shift type.
func (s *Store) LoadShiftState(ctx context.Context) (state ShiftState, found bool, err error) {
	if err := checkContext(ctx); err != nil {
		return ShiftState{}, false, err
	}

	name := s.files.ShiftStateFile
	lines, err := s.readLines(name)
	if err != nil {
		return ShiftState{}, false, fmt.Errorf("failed to load shift state: %w", err)
	}
	if len(lines) == 0 {
		return ShiftState{}, false, nil
	}

	for i, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			s.skip(name, i+1, line, fmt.Errorf("expected key=value"))
			continue
		}
		switch strings.TrimSpace(key) {
		case keyShiftType:
			t, err := models.ParseShiftType(strings.TrimSpace(value))
			if err != nil {
				s.skip(name, i+1, line, err)
				continue
			}
			state.Type = t
		case keyShiftStartTime:
			ts, err := ParseTime(value)
			if err != nil {
				s.skip(name, i+1, line, err)
				continue
			}
			state.StartTime = ts
		default:
			s.logger.Debug("Ignoring unknown shift state key", zap.String("key", key))
		}
	}

	if state.Type == "" {
		return ShiftState{}, false, nil
	}
	return state, true, nil
}

// SaveShiftState rewrites the shift state file
func (s *Store) SaveShiftState(ctx context.Context, state ShiftState) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	lines := []string{
		keyShiftType + "=" + string(state.Type),
		keyShiftStartTime + "=" + FormatTime(state.StartTime),
	}
	if err := s.rewrite(s.files.ShiftStateFile, lines); err != nil {
		return fmt.Errorf("failed to save shift state: %w", err)
	}
	return nil
}

// MembershipFile names the order-ID index of a shift type
func MembershipFile(t models.ShiftType) string {
	return fmt.Sprintf("shift_%s_orders.txt", t)
}

// LoadMembership reads the order IDs recorded for the open instance of a shift type
func (s *Store) LoadMembership(ctx context.Context, t models.ShiftType) ([]int64, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	name := MembershipFile(t)
	lines, err := s.readLines(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load shift membership: %w", err)
	}

	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for i, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != keyOrderID {
			s.skip(name, i+1, line, fmt.Errorf("expected %s=<n>", keyOrderID))
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || id <= 0 {
			s.skip(name, i+1, line, fmt.Errorf("invalid order id %q", value))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// SaveMembership rewrites the order-ID index of a shift type
func (s *Store) SaveMembership(ctx context.Context, t models.ShiftType, ids []int64) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, keyOrderID+"="+strconv.FormatInt(id, 10))
	}
	if err := s.rewrite(MembershipFile(t), lines); err != nil {
		return fmt.Errorf("failed to save shift membership: %w", err)
	}
	return nil
}

// ArchiveMembership renames the membership file of a shift type under a
// timestamped name and returns that name. An absent file is not an error and
// yields an empty name.
func (s *Store) ArchiveMembership(ctx context.Context, t models.ShiftType, at time.Time) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	current := MembershipFile(t)
	if _, err := os.Stat(s.Path(current)); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	base := strings.TrimSuffix(current, ".txt") + "_" + at.Format(archiveLayout)
	archived := base + ".txt"
	for n := 1; s.Exists(archived); n++ {
		archived = fmt.Sprintf("%s_%d.txt", base, n)
	}

	if err := os.Rename(s.Path(current), s.Path(archived)); err != nil {
		return "", fmt.Errorf("failed to archive shift membership: %w", err)
	}
	return archived, nil
}

// AppendShiftSummary adds a report to the summary log. The log is never read back.
func (s *Store) AppendShiftSummary(ctx context.Context, sum *models.ShiftSummary) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if err := s.appendLines(s.files.ShiftSummaryFile, FormatSummary(sum)); err != nil {
		return fmt.Errorf("failed to save shift summary: %w", err)
	}
	return nil
}

// FormatSummary renders the human-readable shift report
func FormatSummary(sum *models.ShiftSummary) []string {
	ids := make([]string, 0, len(sum.OrderIDs))
	for _, id := range sum.OrderIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	orderList := strings.Join(ids, ", ")
	if orderList == "" {
		orderList = "none"
	}

	return []string{
		"===== SHIFT SUMMARY =====",
		"Shift: " + string(sum.Type),
		"Started: " + FormatTime(sum.StartTime),
		"Ended: " + FormatTime(sum.EndTime),
		"Closed by: " + sum.Operator,
		"Orders: " + strconv.Itoa(sum.OrderCount),
		"Items sold: " + strconv.Itoa(sum.ItemCount),
		"Total sales: " + sum.TotalAmount.StringFixed(2),
		"Order IDs: " + orderList,
		"Next shift: " + string(sum.NextType),
		"=========================",
		"",
	}
}
