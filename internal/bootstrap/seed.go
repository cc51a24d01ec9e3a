package bootstrap

import (
	"context"

	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/pkg/utils/secrets"
	"github.com/covalent-team/covalent/internal/pkg/utils/tokens"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rolePermissions maps each seeded role to the permissions it grants.
var rolePermissions = map[string][]string{
	model.RoleAdmin: {
		model.PermProjectCreate,
		model.PermProjectDelete,
		model.PermRoleManage,
		model.PermUserManage,
	},
	model.RoleProjectManager: {
		model.PermProjectCreate,
		model.PermProjectDelete,
	},
	model.RoleUser: {
		model.PermProjectCreate,
	},
}

var roleDescriptions = map[string]string{
	model.RoleAdmin:          "full system access",
	model.RoleProjectManager: "may create and delete projects",
	model.RoleUser:           "regular collaborator",
}

// EnsureSeedData creates the role/permission grant graph and, when
// configured, a bootstrap admin user whose API key comes from config. All
// writes are idempotent upserts so restarts are safe.
func EnsureSeedData(ctx context.Context, db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	perms := map[string]*model.Permission{}
	for _, names := range rolePermissions {
		for _, name := range names {
			if _, ok := perms[name]; ok {
				continue
			}
			p := &model.Permission{Name: name}
			err := db.WithContext(ctx).
				Where(&model.Permission{Name: name}).
				FirstOrCreate(p).Error
			if err != nil {
				return err
			}
			perms[name] = p
		}
	}

	for roleName, permNames := range rolePermissions {
		role := &model.Role{Name: roleName, Description: roleDescriptions[roleName]}
		err := db.WithContext(ctx).
			Where(&model.Role{Name: roleName}).
			FirstOrCreate(role).Error
		if err != nil {
			return err
		}
		for _, permName := range permNames {
			grant := &model.RolePermission{RoleID: role.ID, PermissionID: perms[permName].ID}
			err := db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(grant).Error
			if err != nil {
				return err
			}
		}
	}

	return ensureBootstrapAdmin(ctx, db, cfg, log)
}

// ensureBootstrapAdmin creates or re-keys the admin user named in config.
// Skipped entirely when the identifier or key is not configured.
func ensureBootstrapAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	identifier := cfg.Auth.BootstrapAdminIdentifier
	secret := cfg.Auth.BootstrapAdminAPIKey
	pepper := cfg.Auth.SecretPepper
	if identifier == "" || secret == "" || pepper == "" {
		return nil
	}

	lookup := tokens.HMAC256Hex(pepper, secret)
	phc, err := secrets.HashSecret(secret, pepper)
	if err != nil {
		return err
	}

	var admin model.User
	err = db.WithContext(ctx).Where(&model.User{Identifier: identifier}).First(&admin).Error
	switch err {
	case nil:
		updates := map[string]interface{}{
			"api_key_hmac": lookup,
			"api_key_phc":  phc,
		}
		if uErr := db.WithContext(ctx).Model(&admin).Updates(updates).Error; uErr != nil {
			return uErr
		}
		log.Sugar().Infow("bootstrap admin exists", "user", admin.ID)

	case gorm.ErrRecordNotFound:
		admin = model.User{
			Identifier: identifier,
			Name:       "Administrator",
			APIKeyHMAC: lookup,
			APIKeyPHC:  phc,
		}
		if cErr := db.WithContext(ctx).Create(&admin).Error; cErr != nil {
			return cErr
		}
		log.Sugar().Infow("bootstrap admin created", "user", admin.ID)

	default:
		return err
	}

	var adminRole model.Role
	if err := db.WithContext(ctx).Where(&model.Role{Name: model.RoleAdmin}).First(&adminRole).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: admin.ID, RoleID: adminRole.ID}).Error
}
