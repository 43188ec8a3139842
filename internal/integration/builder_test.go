package integration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/integration"
	"github.com/wedosoft/ticketrag/internal/platform"
)

func tenantCtx() domain.TenantContext {
	return domain.TenantContext{TenantID: "acme", Platform: domain.PlatformFreshdesk}
}

func TestBuildTicket_MergesChronologicallyAndStripsHTML(t *testing.T) {
	now := time.Now()
	raw := platform.RawTicket{
		OriginalID: "101", Subject: "<b>Printer</b> broken", Status: "open", Priority: 9,
		CreatedAt: now, UpdatedAt: now,
	}
	convos := []platform.RawConversation{
		{Body: "<p>second message</p>", CreatedAt: now.Add(time.Minute)},
		{Body: "<p>first message</p>", CreatedAt: now},
	}
	obj, err := integration.BuildTicket(tenantCtx(), raw, convos, nil)
	require.NoError(t, err)
	assert.Equal(t, "Printer broken", obj.Subject)
	assert.Less(t, indexOf(obj.BodyText, "first message"), indexOf(obj.BodyText, "second message"))
	assert.Equal(t, domain.PriorityUrgent, obj.Priority) // clamped from 9
	assert.NotEmpty(t, obj.ContentHash)
}

func TestBuildTicket_RejectsEmptyContent(t *testing.T) {
	_, err := integration.BuildTicket(tenantCtx(), platform.RawTicket{OriginalID: "1"}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidationFailure, domain.KindOf(err))
}

func TestBuildTicket_ContentHashStableAcrossTimestampOnlyChange(t *testing.T) {
	raw1 := platform.RawTicket{OriginalID: "1", Subject: "subj", CreatedAt: time.Unix(100, 0), UpdatedAt: time.Unix(100, 0)}
	raw2 := raw1
	raw2.UpdatedAt = time.Unix(200, 0)

	obj1, err := integration.BuildTicket(tenantCtx(), raw1, nil, nil)
	require.NoError(t, err)
	obj2, err := integration.BuildTicket(tenantCtx(), raw2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, obj1.ContentHash, obj2.ContentHash)
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		text string
		want domain.Language
	}{
		{"안녕하세요 문제가 있습니다", domain.LanguageKorean},
		{"これはテストです", domain.LanguageJapanese},
		{"这是一个测试问题", domain.LanguageChinese},
		{"This is a plain english ticket about a printer", domain.LanguageEnglish},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, integration.DetectLanguage(c.text), c.text)
	}
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
