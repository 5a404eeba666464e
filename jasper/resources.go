package jasper

import (
	"context"
	"strings"

	"github.com/teranos/jasper-mcp/errors"
)

// Resource fetches the descriptor of a single repository resource.
//
// The rest_v2 resources endpoint reports the concrete type through the
// response content type ("application/repository.reportUnit+json"); older
// servers also put a resourceType field in the body. Both are honored,
// header first.
func (c *Client) Resource(ctx context.Context, uri string) (*ResourceDescriptor, error) {
	if !strings.HasPrefix(uri, "/") {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "resource URI %q must start with /", uri)
	}

	var rd ResourceDescriptor
	resp, err := c.getJSON(ctx, "/resources"+uri, nil, &rd)
	if err != nil {
		return nil, err
	}
	if rt := repositoryTypeFromContentType(resp.Header.Get("Content-Type")); rt != "" {
		rd.ResourceType = rt
	}
	if rd.URI == "" {
		rd.URI = uri
	}
	return &rd, nil
}

// repositoryTypeFromContentType extracts "reportUnit" from
// "application/repository.reportUnit+json; charset=UTF-8".
func repositoryTypeFromContentType(ct string) string {
	const prefix = "application/repository."
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	if !strings.HasPrefix(ct, prefix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(ct, prefix), "+json")
}

// InputControls fetches the input controls declared on a report.
func (c *Client) InputControls(ctx context.Context, reportURI string) ([]InputControl, error) {
	if !strings.HasPrefix(reportURI, "/") {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "report URI %q must start with /", reportURI)
	}

	// Reports without input controls answer 204 on some server versions;
	// getJSON leaves out untouched and the empty list falls through.
	var out inputControlsResponse
	if _, err := c.getJSON(ctx, "/reports"+reportURI+"/inputControls", nil, &out); err != nil {
		return nil, err
	}
	return out.InputControl, nil
}
