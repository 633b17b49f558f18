package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
)

// Ошибки репозитория профилей риска
var (
	ErrConfigNotFound = errors.New("risk config not found")
)

// ConfigRepository - работа с таблицей risk_configs
type ConfigRepository struct {
	db *sql.DB
}

// NewConfigRepository создает новый экземпляр репозитория
func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

const configColumns = `
	id, user_address, profile_name, is_active, risk_tolerance_level,
	liquidity_risk_weight, volatility_risk_weight, protocol_risk_weight,
	mev_risk_weight, cross_chain_risk_weight,
	min_tvl_threshold, max_slippage_tolerance, thin_pool_threshold, tvl_drop_threshold,
	volatility_lookback_days, high_volatility_threshold, correlation_threshold,
	min_audit_score, max_exploit_tolerance, governance_risk_weight,
	sandwich_attack_threshold, frontrun_threshold, oracle_deviation_threshold,
	bridge_risk_tolerance, liquidity_fragmentation_threshold, governance_divergence_threshold,
	overall_risk_threshold, created_at, updated_at`

// Create сохраняет новый профиль риска
func (r *ConfigRepository) Create(c *models.RiskConfig) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO risk_configs (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`

	_, err := r.db.Exec(query, r.args(c)...)
	return err
}

// Update перезаписывает изменяемые поля профиля
func (r *ConfigRepository) Update(c *models.RiskConfig) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE risk_configs SET
			profile_name = $2, risk_tolerance_level = $3,
			liquidity_risk_weight = $4, volatility_risk_weight = $5,
			protocol_risk_weight = $6, mev_risk_weight = $7, cross_chain_risk_weight = $8,
			min_tvl_threshold = $9, max_slippage_tolerance = $10,
			thin_pool_threshold = $11, tvl_drop_threshold = $12,
			volatility_lookback_days = $13, high_volatility_threshold = $14,
			correlation_threshold = $15, min_audit_score = $16,
			max_exploit_tolerance = $17, governance_risk_weight = $18,
			sandwich_attack_threshold = $19, frontrun_threshold = $20,
			oracle_deviation_threshold = $21, bridge_risk_tolerance = $22,
			liquidity_fragmentation_threshold = $23, governance_divergence_threshold = $24,
			overall_risk_threshold = $25, updated_at = $26
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(query,
		c.ID, c.ProfileName, c.ToleranceLevel,
		c.Weights.Liquidity, c.Weights.Volatility, c.Weights.Protocol,
		c.Weights.MEV, c.Weights.CrossChain,
		c.Params.MinTVLThreshold, c.Params.MaxSlippage,
		c.Params.ThinPoolThreshold, c.Params.TVLDropThreshold,
		c.Params.VolatilityLookbackDays, c.Params.HighVolatilityThreshold,
		c.Params.CorrelationThreshold, c.Params.MinAuditScore,
		c.Params.MaxExploitTolerance, c.Params.GovernanceRiskWeight,
		c.Params.SandwichAttackThreshold, c.Params.FrontrunThreshold,
		c.Params.OracleDeviationThreshold, c.Params.BridgeRiskTolerance,
		c.Params.FragmentationThreshold, c.Params.GovernanceDivergenceLimit,
		c.OverallRiskThreshold, c.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrConfigNotFound
	}

	return nil
}

// Activate делает профиль активным, деактивируя прочие профили
// пользователя в той же транзакции
func (r *ConfigRepository) Activate(id uuid.UUID, userAddress string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE risk_configs
		SET is_active = false, updated_at = $2
		WHERE user_address = $1 AND is_active = true`,
		userAddress, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	result, err := tx.Exec(`
		UPDATE risk_configs
		SET is_active = true, updated_at = $3
		WHERE id = $1 AND user_address = $2 AND deleted_at IS NULL`,
		id, userAddress, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrConfigNotFound
	}

	return tx.Commit()
}

// GetActive возвращает активный профиль пользователя
func (r *ConfigRepository) GetActive(userAddress string) (*models.RiskConfig, error) {
	query := `SELECT ` + configColumns + `
		FROM risk_configs
		WHERE user_address = $1 AND is_active = true AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, userAddress))
}

// GetByID возвращает профиль по идентификатору
func (r *ConfigRepository) GetByID(id uuid.UUID) (*models.RiskConfig, error) {
	query := `SELECT ` + configColumns + `
		FROM risk_configs
		WHERE id = $1 AND deleted_at IS NULL`

	return r.scanOne(r.db.QueryRow(query, id))
}

// ListByUser возвращает все профили пользователя
func (r *ConfigRepository) ListByUser(userAddress string) ([]*models.RiskConfig, error) {
	query := `SELECT ` + configColumns + `
		FROM risk_configs
		WHERE user_address = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, userAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.RiskConfig
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}

	return configs, rows.Err()
}

// Delete помечает профиль удаленным. Физического удаления нет:
// история оценок считалась по этому профилю. Удаленный профиль
// деактивируется и выпадает из всех выборок.
func (r *ConfigRepository) Delete(id uuid.UUID, userAddress string) error {
	result, err := r.db.Exec(`
		UPDATE risk_configs
		SET is_active = false, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND user_address = $2 AND deleted_at IS NULL`,
		id, userAddress, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrConfigNotFound
	}

	return nil
}

func (r *ConfigRepository) args(c *models.RiskConfig) []interface{} {
	return []interface{}{
		c.ID, c.UserAddress, c.ProfileName, c.IsActive, c.ToleranceLevel,
		c.Weights.Liquidity, c.Weights.Volatility, c.Weights.Protocol,
		c.Weights.MEV, c.Weights.CrossChain,
		c.Params.MinTVLThreshold, c.Params.MaxSlippage,
		c.Params.ThinPoolThreshold, c.Params.TVLDropThreshold,
		c.Params.VolatilityLookbackDays, c.Params.HighVolatilityThreshold,
		c.Params.CorrelationThreshold, c.Params.MinAuditScore,
		c.Params.MaxExploitTolerance, c.Params.GovernanceRiskWeight,
		c.Params.SandwichAttackThreshold, c.Params.FrontrunThreshold,
		c.Params.OracleDeviationThreshold, c.Params.BridgeRiskTolerance,
		c.Params.FragmentationThreshold, c.Params.GovernanceDivergenceLimit,
		c.OverallRiskThreshold, c.CreatedAt, c.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ConfigRepository) scanRow(row rowScanner) (*models.RiskConfig, error) {
	c := &models.RiskConfig{}
	err := row.Scan(
		&c.ID, &c.UserAddress, &c.ProfileName, &c.IsActive, &c.ToleranceLevel,
		&c.Weights.Liquidity, &c.Weights.Volatility, &c.Weights.Protocol,
		&c.Weights.MEV, &c.Weights.CrossChain,
		&c.Params.MinTVLThreshold, &c.Params.MaxSlippage,
		&c.Params.ThinPoolThreshold, &c.Params.TVLDropThreshold,
		&c.Params.VolatilityLookbackDays, &c.Params.HighVolatilityThreshold,
		&c.Params.CorrelationThreshold, &c.Params.MinAuditScore,
		&c.Params.MaxExploitTolerance, &c.Params.GovernanceRiskWeight,
		&c.Params.SandwichAttackThreshold, &c.Params.FrontrunThreshold,
		&c.Params.OracleDeviationThreshold, &c.Params.BridgeRiskTolerance,
		&c.Params.FragmentationThreshold, &c.Params.GovernanceDivergenceLimit,
		&c.OverallRiskThreshold, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ConfigRepository) scanOne(row *sql.Row) (*models.RiskConfig, error) {
	c, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return c, nil
}
