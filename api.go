package pollmint

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/everFinance/pollmint/common"
	"github.com/everFinance/pollmint/schema"
	"github.com/gin-gonic/gin"
)

func (s *Pollmint) runAPI(port string) {
	s.registerRoutes()
	if err := s.engine.Run(port); err != nil {
		panic(err)
	}
}

func (s *Pollmint) registerRoutes() {
	r := s.engine
	r.Use(common.CORSMiddleware())

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if s.rateLimit > 0 {
		limit = common.LimiterMiddleware(s.rateLimit, "M", s.config.Whitelist)
	}

	v1 := r.Group("/api")
	{
		v1.GET("/credits/:wallet", s.getCredits)
		v1.POST("/verify-payment", limit, s.verifyPayment)
		v1.GET("/polls/:id", s.getPoll)
		v1.GET("/polls/:id/coins", s.getPollCoins)
		v1.GET("/polls/:id/preview/:option", s.getCoinPreview)
		v1.GET("/tokens/:id/:option", s.getToken)
		v1.GET("/coins/:userId", s.getUserCoins)
		v1.GET("/packages/:userId", s.getPackages)

		user := v1.Group("", common.UserMiddleware())
		user.POST("/polls", s.createPoll)
		user.POST("/polls/:id/vote", limit, s.vote)
		user.POST("/polls/:id/battle/complete", s.completeBattle)
		user.POST("/packages/purchase", limit, s.purchasePackage)

		admin := v1.Group("/admin", common.AdminMiddleware(s.adminKey))
		admin.POST("/add-credits", s.addCredits)
	}
}

func (s *Pollmint) vote(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	req := schema.ReqVote{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}

	resp, err := s.voter.Vote(c.Request.Context(), VoteRequest{
		UserID:        c.GetString(common.CtxUserID),
		PollID:        pollID,
		Option:        req.Option,
		WalletAddress: req.WalletAddress,
		CreditWallet:  req.CreditWallet,
		DemoMode:      req.DemoMode,
	})
	if schema.IsKind(err, schema.KindWalletChoiceRequired) {
		preview, perr := s.voter.Preview(pollID, req.Option)
		if perr != nil {
			errResponse(c, perr)
			return
		}
		c.JSON(http.StatusBadRequest, schema.RespWalletChoice{
			RespErr:              schema.RespErr{Err: err.Error(), Kind: schema.KindWalletChoiceRequired},
			RequiresWalletChoice: true,
			CoinPreview:          preview,
		})
		return
	}
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Pollmint) verifyPayment(c *gin.Context) {
	req := schema.ReqVerifyPayment{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	credits, err := s.verifier.VerifyPayment(c.Request.Context(), req.TxHash, req.SenderWallet)
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespVerifyPayment{
		Success: true,
		Credits: credits,
		Message: "Payment verified! " + strconv.FormatInt(credits, 10) + " credits added.",
	})
}

func (s *Pollmint) addCredits(c *gin.Context) {
	req := schema.ReqAddCredits{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.ledger.AddCredits(req.WalletAddress, req.Credits); err != nil {
		errResponse(c, err)
		return
	}
	s.respCredits(c, req.WalletAddress)
}

func (s *Pollmint) getCredits(c *gin.Context) {
	s.respCredits(c, c.Param("wallet"))
}

func (s *Pollmint) respCredits(c *gin.Context, wallet string) {
	credits, err := s.ledger.GetCredits(wallet)
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespCredits{Wallet: normalizeWallet(wallet), Credits: credits})
}

func (s *Pollmint) createPoll(c *gin.Context) {
	req := schema.ReqCreatePoll{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	poll, err := s.CreatePoll(c.GetString(common.CtxUserID), req)
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (s *Pollmint) getPoll(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	poll, err := s.wdb.GetPoll(pollID)
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (s *Pollmint) getPollCoins(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	coins, err := s.wdb.GetCoinsByPoll(pollID)
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

func (s *Pollmint) getCoinPreview(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	option, ok := optionParam(c)
	if !ok {
		return
	}
	preview, err := s.voter.Preview(pollID, option)
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Pollmint) getToken(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	option, ok := optionParam(c)
	if !ok {
		return
	}
	entry, found, err := s.registry.GetTokenAddress(pollID, option)
	if err != nil {
		errResponse(c, err)
		return
	}
	if !found {
		errResponse(c, schema.NewError(schema.KindNotFound, "no token for %s", registryKey(pollID, option)))
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Pollmint) getUserCoins(c *gin.Context) {
	coins, err := s.wdb.GetCoinsByUser(c.Param("userId"))
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

func (s *Pollmint) completeBattle(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}
	req := schema.ReqBattleComplete{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	bc, err := s.CompleteBattle(pollID, c.GetString(common.CtxUserID), req.Winner)
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, bc)
}

func (s *Pollmint) purchasePackage(c *gin.Context) {
	req := schema.ReqPurchasePackage{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	pkg, err := s.packages.Purchase(c.Request.Context(), c.GetString(common.CtxUserID), req.TxHash, req.SenderWallet)
	if err != nil {
		errResponse(c, err)
		return
	}
	status := http.StatusOK
	if pkg.Status == schema.PackagePending {
		status = http.StatusAccepted
	}
	c.JSON(status, pkg)
}

func (s *Pollmint) getPackages(c *gin.Context) {
	pkgs, err := s.packages.ByUser(c.Param("userId"))
	if err != nil {
		errResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, pkgs)
}

func pollIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		errorResponse(c, "invalid poll id")
		return 0, false
	}
	return uint(id), true
}

func optionParam(c *gin.Context) (string, bool) {
	option := strings.ToUpper(c.Param("option"))
	if option != schema.OptionA && option != schema.OptionB {
		errorResponse(c, "option must be A or B")
		return "", false
	}
	return option, true
}

// errResponse renders a tagged error with the status its kind maps to.
func errResponse(c *gin.Context, err error) {
	kind := schema.KindOf(err)
	status := schema.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err, "path", c.FullPath())
	}
	msg := err.Error()
	var e *schema.Error
	if errors.As(err, &e) && e.Kind == kind && kind != schema.KindInternal {
		msg = e.Msg
	}
	c.JSON(status, schema.RespErr{Err: msg, Kind: kind})
}

func errorResponse(c *gin.Context, err string) {
	// client error
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err:  err,
		Kind: schema.KindInvalidParams,
	})
}
