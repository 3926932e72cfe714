package sink

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("hello"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestS3SinkDisabledWithoutCredentials(t *testing.T) {
	s, err := NewS3Sink(context.Background(), S3Options{Bucket: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Enabled() {
		t.Error("expected sink to be disabled")
	}
	if _, err := s.Deliver(context.Background(), "", "a.zip", nil); err == nil {
		t.Error("expected error from disabled sink")
	}
}

func TestS3SinkDeliver(t *testing.T) {
	put := &fakePutter{}
	s := &S3Sink{bucket: "artifacts", prefix: "exports", client: put}
	data := zipBytes(t)

	loc, err := s.Deliver(context.Background(), "team/", "Claude_Artifacts_x.zip", data)
	if err != nil {
		t.Fatal(err)
	}
	if loc != "s3://artifacts/exports/team/Claude_Artifacts_x.zip" {
		t.Errorf("unexpected location %q", loc)
	}
	if aws.ToString(put.input.Key) != "exports/team/Claude_Artifacts_x.zip" {
		t.Errorf("unexpected key %q", aws.ToString(put.input.Key))
	}
	if aws.ToString(put.input.ContentType) != "application/zip" {
		t.Errorf("unexpected content type %q", aws.ToString(put.input.ContentType))
	}
	if !bytes.Equal(put.body, data) {
		t.Error("uploaded body differs from archive")
	}
}

func TestS3ObjectKey(t *testing.T) {
	s := &S3Sink{}
	if got := s.objectKey("", "a.zip"); got != "a.zip" {
		t.Errorf("expected a.zip, got %q", got)
	}
	s.prefix = "p"
	if got := s.objectKey("/x/", "a.zip"); got != "p/x/a.zip" {
		t.Errorf("expected p/x/a.zip, got %q", got)
	}
}
