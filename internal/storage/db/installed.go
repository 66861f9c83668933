package db

import (
	"fmt"

	"acsync/internal/domain"
)

// IsInstalled reports whether checksum has been installed
func (d *DB) IsInstalled(checksum string) (bool, error) {
	var count int
	err := d.QueryRow("SELECT COUNT(*) FROM installed_mods WHERE checksum = ?", checksum).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking installed mod: %w", err)
	}
	return count > 0, nil
}

// MarkInstalled records checksum as installed. Marking it again changes nothing.
func (d *DB) MarkInstalled(checksum string) error {
	_, err := d.Exec(`
		INSERT INTO installed_mods (checksum, installed_at)
		VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(checksum) DO NOTHING
	`, checksum)
	if err != nil {
		return fmt.Errorf("marking installed: %w", err)
	}
	return nil
}

// UnmarkInstalled forgets checksum so it can be installed again.
// It returns domain.ErrModNotFound if checksum was not recorded.
func (d *DB) UnmarkInstalled(checksum string) error {
	res, err := d.Exec("DELETE FROM installed_mods WHERE checksum = ?", checksum)
	if err != nil {
		return fmt.Errorf("unmarking installed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unmarking installed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrModNotFound, checksum)
	}
	return nil
}

// ListInstalled returns every recorded mod, oldest first
func (d *DB) ListInstalled() ([]domain.InstalledMod, error) {
	rows, err := d.Query("SELECT checksum, installed_at FROM installed_mods ORDER BY installed_at, checksum")
	if err != nil {
		return nil, fmt.Errorf("listing installed mods: %w", err)
	}
	defer rows.Close()

	var mods []domain.InstalledMod
	for rows.Next() {
		var m domain.InstalledMod
		if err := rows.Scan(&m.Checksum, &m.InstalledAt); err != nil {
			return nil, fmt.Errorf("scanning installed mod: %w", err)
		}
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing installed mods: %w", err)
	}
	return mods, nil
}
