package command

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestTransitionForRenderTargetUsesColorAttachmentLayout(t *testing.T) {
	tr := transitionFor(StateRenderTarget)
	if tr.layout != vk.ImageLayoutColorAttachmentOptimal {
		t.Fatalf("layout = %v, want ColorAttachmentOptimal", tr.layout)
	}
}

func TestTransitionForUnorderedAccessUsesGeneralLayout(t *testing.T) {
	tr := transitionFor(StateUnorderedAccess)
	if tr.layout != vk.ImageLayoutGeneral {
		t.Fatalf("layout = %v, want General", tr.layout)
	}
}

func TestTransitionForCommonIsUndefinedLayout(t *testing.T) {
	tr := transitionFor(StateCommon)
	if tr.layout != vk.ImageLayoutUndefined {
		t.Fatalf("layout = %v, want Undefined", tr.layout)
	}
}

func TestTransitionForDepthWriteVsRead(t *testing.T) {
	write := transitionFor(StateDepthWrite)
	read := transitionFor(StateDepthRead)
	if write.layout == read.layout {
		t.Fatalf("depth write/read must use distinct layouts, got %v for both", write.layout)
	}
}
