package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
)

type certificateApi struct {
	svc *course.Service
}

// registerCertificateAPI exposes certificates publicly, for verification.
func registerCertificateAPI(g *echo.Group, svc *course.Service) {
	api := certificateApi{svc: svc}

	cg := g.Group("/certificates")
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/pdf", api.pdf)
}

func (api *certificateApi) retrieve(ctx echo.Context) error {
	cert, err := api.svc.GetCertificate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting certificate")
	}
	return ctx.JSON(http.StatusOK, cert)
}

func (api *certificateApi) pdf(ctx echo.Context) error {
	cert, doc, err := api.svc.CertificatePDF(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rendering certificate")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=certificate-%s.pdf", cert.Number))
	return ctx.Blob(http.StatusOK, "application/pdf", doc)
}
