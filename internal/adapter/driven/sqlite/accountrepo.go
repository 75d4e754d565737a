package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
// Secrets are encrypted with the injected cipher before write and decrypted
// after read; the roblosecurity column never holds plaintext written by this
// repo.
type AccountRepo struct {
	db     *DB
	cipher driven.SecretCipher
}

// NewAccountRepo creates a new AccountRepo backed by the given DB and cipher.
func NewAccountRepo(db *DB, cipher driven.SecretCipher) *AccountRepo {
	return &AccountRepo{db: db, cipher: cipher}
}

// Upsert inserts the account or replaces an existing one. A re-login of a
// known account arrives with an empty alias and no group; in that case the
// stored alias and group survive.
func (r *AccountRepo) Upsert(ctx context.Context, account model.Account) error {
	secret, err := r.sealSecret(account.Secret)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", account.Username, err)
	}

	const query = `INSERT INTO accounts (username, alias, profile_path, roblosecurity, group_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			profile_path = excluded.profile_path,
			roblosecurity = excluded.roblosecurity,
			alias = CASE WHEN excluded.alias = '' AND excluded.group_id IS NULL
				THEN accounts.alias ELSE excluded.alias END,
			group_id = CASE WHEN excluded.alias = '' AND excluded.group_id IS NULL
				THEN accounts.group_id ELSE excluded.group_id END`

	_, err = r.db.Writer.ExecContext(ctx, query,
		account.Username, account.Alias, account.ProfilePath, secret, nullableID(account.GroupID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("upsert account %s: %w", account.Username, driven.ErrGroupNotFound)
		}
		return fmt.Errorf("upsert account %s: %w", account.Username, err)
	}

	return nil
}

// Get returns the account with its decrypted secret. A stored secret that
// carries the token marker but fails to decrypt yields ErrSecretCorrupt.
func (r *AccountRepo) Get(ctx context.Context, username string) (*model.Account, error) {
	const query = `SELECT username, COALESCE(alias, ''), group_id, roblosecurity, COALESCE(profile_path, '')
		FROM accounts WHERE username = ?`

	var (
		account model.Account
		groupID sql.NullInt64
		secret  sql.NullString
	)
	err := r.db.Reader.QueryRowContext(ctx, query, username).
		Scan(&account.Username, &account.Alias, &groupID, &secret, &account.ProfilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account %s: %w", username, driven.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", username, err)
	}

	account.GroupID = idPtr(groupID)
	account.Secret, err = r.cipher.Decrypt(secret.String)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret for %s: %w", username, err)
	}

	return &account, nil
}

// List returns all accounts ordered by username.
func (r *AccountRepo) List(ctx context.Context) ([]model.AccountSummary, error) {
	const query = `SELECT username, COALESCE(alias, ''), group_id FROM accounts ORDER BY username`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.AccountSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Delete removes the account together with its last-played history in one
// transaction and returns the stored profile path.
func (r *AccountRepo) Delete(ctx context.Context, username string) (string, error) {
	var profilePath string

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		const selectQuery = `SELECT COALESCE(profile_path, '') FROM accounts WHERE username = ?`
		err := tx.QueryRowContext(ctx, selectQuery, username).Scan(&profilePath)
		if errors.Is(err, sql.ErrNoRows) {
			return driven.ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM last_played WHERE username = ?`, username); err != nil {
			return fmt.Errorf("delete last played: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE username = ?`, username); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("delete account %s: %w", username, err)
	}

	return profilePath, nil
}

// SetAlias replaces the alias of an existing account.
func (r *AccountRepo) SetAlias(ctx context.Context, username, alias string) error {
	const query = `UPDATE accounts SET alias = ? WHERE username = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, alias, username)
	if err != nil {
		return fmt.Errorf("set alias for %s: %w", username, err)
	}

	return requireAffected(result, fmt.Sprintf("set alias for %s", username), driven.ErrAccountNotFound)
}

// SetGroup moves an account into groupID, or to ungrouped when nil.
func (r *AccountRepo) SetGroup(ctx context.Context, username string, groupID *int64) error {
	const query = `UPDATE accounts SET group_id = ? WHERE username = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, nullableID(groupID), username)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("set group for %s: %w", username, driven.ErrGroupNotFound)
		}
		return fmt.Errorf("set group for %s: %w", username, err)
	}

	return requireAffected(result, fmt.Sprintf("set group for %s", username), driven.ErrAccountNotFound)
}

// SecretMigration counts the outcome of EncryptPlaintextSecrets.
type SecretMigration struct {
	Encrypted  int      // Plaintext secrets now encrypted.
	Upgraded   int      // Legacy tokens re-encrypted in the current format.
	Skipped    int      // Already current, or changed by someone else mid-walk.
	Unreadable []string // Legacy tokens that do not verify under the key; left as stored.
	Deferred   bool     // Nothing was rewritten because the key is not persisted.
}

// EncryptPlaintextSecrets rewrites every stored secret that is not yet in the
// current token format. Legacy tokens are decrypted with the same key and
// re-encrypted; anything else is treated as plaintext. Each row is updated
// on its own with a compare-and-set on the old value, so the walk can be
// interrupted and re-run at any point.
//
// A legacy token that fails verification is left untouched and reported in
// Unreadable. While the cipher is degraded the walk is deferred: sealing
// readable plaintext under a key that dies with the process would lose it.
func (r *AccountRepo) EncryptPlaintextSecrets(ctx context.Context) (SecretMigration, error) {
	var result SecretMigration

	if r.cipher.Degraded() != nil {
		result.Deferred = true
		return result, nil
	}

	const query = `SELECT username, roblosecurity FROM accounts
		WHERE roblosecurity IS NOT NULL AND roblosecurity != '' ORDER BY username`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return result, fmt.Errorf("scan secrets: %w", err)
	}

	type pending struct{ username, stored string }
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.username, &p.stored); err != nil {
			rows.Close()
			return result, fmt.Errorf("scan secret row: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate secrets: %w", err)
	}

	const update = `UPDATE accounts SET roblosecurity = ? WHERE username = ? AND roblosecurity = ?`
	for _, p := range todo {
		if r.cipher.IsEncrypted(p.stored) {
			result.Skipped++
			continue
		}

		plaintext, legacy := r.cipher.DecryptLegacy(p.stored)
		if !legacy {
			if r.cipher.IsLegacy(p.stored) {
				result.Unreadable = append(result.Unreadable, p.username)
				continue
			}
			plaintext = p.stored
		}

		token, err := r.cipher.Encrypt(plaintext)
		if err != nil {
			return result, fmt.Errorf("encrypt secret for %s: %w", p.username, err)
		}

		res, err := r.db.Writer.ExecContext(ctx, update, token, p.username, p.stored)
		if err != nil {
			return result, fmt.Errorf("rewrite secret for %s: %w", p.username, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("check rows affected: %w", err)
		}

		switch {
		case n == 0:
			result.Skipped++
		case legacy:
			result.Upgraded++
		default:
			result.Encrypted++
		}
	}

	return result, nil
}

// sealSecret encrypts a non-empty secret; an empty secret is stored as NULL.
func (r *AccountRepo) sealSecret(secret string) (any, error) {
	if secret == "" {
		return nil, nil
	}
	token, err := r.cipher.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}
	return token, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(s scanner) (model.AccountSummary, error) {
	var summary model.AccountSummary
	var groupID sql.NullInt64
	if err := s.Scan(&summary.Username, &summary.Alias, &groupID); err != nil {
		return summary, err
	}
	summary.GroupID = idPtr(groupID)
	return summary, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(id sql.NullInt64) *int64 {
	if !id.Valid {
		return nil
	}
	v := id.Int64
	return &v
}

func requireAffected(result sql.Result, op string, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint")
}
