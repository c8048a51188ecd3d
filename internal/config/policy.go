package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MembershipPolicy holds the tunable rules of the membership workflow.
type MembershipPolicy struct {
	// ExemptOrganizationTypes lists organization types whose members may be
	// approved while the organization itself is still awaiting approval.
	ExemptOrganizationTypes []string `mapstructure:"exempt_organization_types"`
}

func DefaultMembershipPolicy() MembershipPolicy {
	return MembershipPolicy{ExemptOrganizationTypes: []string{}}
}

// IsExempt reports whether the organization type bypasses the approved-organization check.
func (p MembershipPolicy) IsExempt(orgType string) bool {
	orgType = strings.TrimSpace(orgType)
	for _, t := range p.ExemptOrganizationTypes {
		if t == orgType {
			return true
		}
	}
	return false
}

var errMissingMembershipSection = errors.New("membership section missing")

var knownOrganizationTypes = map[string]struct{}{
	"admin_faculty":    {},
	"official_student": {},
	"general":          {},
}

type MembershipPolicyHolder struct {
	current atomic.Value // holds MembershipPolicy
}

// NewStaticMembershipPolicyHolder returns a holder that never reloads.
func NewStaticMembershipPolicyHolder(policy MembershipPolicy) *MembershipPolicyHolder {
	holder := &MembershipPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewMembershipPolicyHolder(cfg Config) (*MembershipPolicyHolder, error) {
	v := newPolicyViper(cfg)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	policy, err := decodeMembershipPolicy(v)
	if err != nil {
		return nil, err
	}
	holder := NewStaticMembershipPolicyHolder(policy)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := holder.reload(v); err != nil {
				zap.L().Warn("membership policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			zap.L().Info("membership policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func newPolicyViper(cfg Config) *viper.Viper {
	v := viper.New()
	if cfg.MembershipPolicyPath != "" {
		v.SetConfigFile(cfg.MembershipPolicyPath)
	} else {
		v.SetConfigName("membership_policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/tigerlife")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TIGERLIFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("membership.exempt_organization_types", DefaultMembershipPolicy().ExemptOrganizationTypes)
	return v
}

func decodeMembershipPolicy(v *viper.Viper) (MembershipPolicy, error) {
	var policy MembershipPolicy
	if err := v.UnmarshalKey("membership", &policy); err != nil {
		return MembershipPolicy{}, err
	}
	if err := validateMembershipPolicy(policy); err != nil {
		return MembershipPolicy{}, err
	}
	return policy, nil
}

// reload swaps in the policy viper just re-read. A file without a
// membership section (an editor truncating before it writes) or with an
// invalid one leaves the current policy in place.
func (h *MembershipPolicyHolder) reload(v *viper.Viper) error {
	if !v.InConfig("membership") {
		return errMissingMembershipSection
	}
	policy, err := decodeMembershipPolicy(v)
	if err != nil {
		return err
	}
	h.current.Store(policy)
	return nil
}

func (h *MembershipPolicyHolder) Get() MembershipPolicy {
	if h == nil {
		return DefaultMembershipPolicy()
	}
	policy, ok := h.current.Load().(MembershipPolicy)
	if !ok {
		return DefaultMembershipPolicy()
	}
	return policy
}

func validateMembershipPolicy(policy MembershipPolicy) error {
	for _, t := range policy.ExemptOrganizationTypes {
		if _, ok := knownOrganizationTypes[strings.TrimSpace(t)]; !ok {
			return fmt.Errorf("membership.exempt_organization_types: unknown organization type %q", t)
		}
	}
	return nil
}
