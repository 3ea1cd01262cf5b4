package scraper

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps human-readable config strings to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// neverBlock lists URL fragments the results feed cannot render without,
// regardless of resource type.
var neverBlock = []string{
	"/maps/vt",
	"/maps/api/",
	"/maps/preview/",
}

// blockedTypes builds the lookup set from config strings. Unknown names are
// ignored.
func blockedTypes(names []string) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	return blocked
}

// shouldBlock decides a single request.
func shouldBlock(blocked map[proto.NetworkResourceType]struct{}, rt proto.NetworkResourceType, url string) bool {
	if _, ok := blocked[rt]; !ok {
		return false
	}
	for _, frag := range neverBlock {
		if strings.Contains(url, frag) {
			return false
		}
	}
	return true
}

// setupHijack installs a request interceptor on the page that blocks the
// configured resource types.
//
// Returns the running HijackRouter so the caller can Stop it on close.
// Returns nil if there is nothing to block.
func setupHijack(page *rod.Page, names []string) *rod.HijackRouter {
	blocked := blockedTypes(names)
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if shouldBlock(blocked, ctx.Request.Type(), ctx.Request.URL().String()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}
