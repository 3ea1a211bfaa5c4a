package audit_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/audit"
)

type recordingS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (r *recordingS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.input = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	r.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	t.Parallel()

	t.Run("writes ndjson for the company", func(t *testing.T) {
		t.Parallel()
		trail := audit.NewTrail(audit.NewMemoryStorage())
		ctx := context.Background()
		trail.Append(ctx, audit.Entry{CompanyID: ptr(10), Details: audit.MemberAdded{Kind: "team", ResourceID: 3, UserID: 8}})
		trail.Append(ctx, audit.Entry{CompanyID: ptr(10), Details: audit.MemberRemoved{Kind: "team", ResourceID: 3, UserID: 9}})
		trail.Append(ctx, audit.Entry{CompanyID: ptr(11), Details: audit.MemberAdded{Kind: "team", ResourceID: 4, UserID: 1}})

		client := &recordingS3{}
		archiver := audit.NewS3Archiver(trail, client, audit.ArchiveConfig{Bucket: "exports", Prefix: "/audit/"})

		res, err := archiver.Archive(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Entries)
		assert.Equal(t, "exports", res.Bucket)
		assert.True(t, strings.HasPrefix(res.Key, "audit/company-10/"), res.Key)
		assert.True(t, strings.HasSuffix(res.Key, ".ndjson"), res.Key)
		assert.Equal(t, "application/x-ndjson", *client.input.ContentType)

		lines := 0
		sc := bufio.NewScanner(bytes.NewReader(client.body))
		for sc.Scan() {
			var e audit.Entry
			require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
			assert.Equal(t, int64(10), *e.CompanyID)
			lines++
		}
		assert.Equal(t, 2, lines)
	})

	t.Run("api error is classified", func(t *testing.T) {
		t.Parallel()
		trail := audit.NewTrail(audit.NewMemoryStorage())
		client := &recordingS3{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}}
		archiver := audit.NewS3Archiver(trail, client, audit.ArchiveConfig{Bucket: "exports"})

		_, err := archiver.Archive(context.Background(), 10)
		require.ErrorIs(t, err, audit.ErrArchiveFailed)
		assert.Contains(t, err.Error(), "AccessDenied")
	})
}

func TestNewS3Client_NotConfigured(t *testing.T) {
	t.Parallel()
	_, err := audit.NewS3Client(context.Background(), audit.ArchiveConfig{})
	assert.ErrorIs(t, err, audit.ErrArchiveNotConfigured)
}
