package storage

import "testing"

func TestSplitS3URL(t *testing.T) {
	bucket, object, err := splitS3URL("s3://pilkada-jateng/device/a.jpg")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if bucket != "pilkada-jateng" || object != "device/a.jpg" {
		t.Fatalf("unexpected split %q / %q", bucket, object)
	}
}

func TestSplitS3URLMalformed(t *testing.T) {
	for _, url := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///object"} {
		if _, _, err := splitS3URL(url); err == nil {
			t.Fatalf("expected error for %q", url)
		}
	}
}

func TestLocationPrefix(t *testing.T) {
	s := NewMinioBlobStore(nil, "pilkada-jateng")
	if got := s.LocationPrefix(); got != "s3://pilkada-jateng/" {
		t.Fatalf("unexpected prefix %q", got)
	}
}
