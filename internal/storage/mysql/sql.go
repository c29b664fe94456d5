package mysql

const insertEntrySQL = `
INSERT INTO stay_ledger
  (id, owner_id, cabin_id, action, booking_id, check_in, check_out, nights, outcome, detail)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// One row per applied annual reset; re-applying the same anniversary is a
// no-op so a crashed load cannot double-reset.
const insertResetSQL = `
INSERT INTO allowance_resets (owner_id, cabin_id, reset_on)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE applied_at = applied_at
`

const lastResetSQL = `
SELECT MAX(reset_on)
FROM allowance_resets
WHERE owner_id = ? AND cabin_id = ?
`

const listEntriesSQL = `
SELECT id, owner_id, cabin_id, action, booking_id, check_in, check_out, nights, outcome, detail, created_at
FROM stay_ledger
WHERE owner_id = ? AND cabin_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
