package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	authjwt "nexo/backend/internal/auth/jwt"
	"nexo/backend/internal/domain"
)

// MemberStore 家庭组成员查询接口
//
// Hub 用它决定客户端能订阅哪些家庭组的更新。
type MemberStore interface {
	ListOrganizationsByUserID(userID string) ([]domain.Organization, error)
}

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				// 没有 Origin 视为同源请求
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeUpdate      MessageType = "update"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// UpdateKind 更新所属的业务域
type UpdateKind string

const (
	UpdateShopping UpdateKind = "shopping"
	UpdateEvent    UpdateKind = "event"
	UpdateExpense  UpdateKind = "expense"
	UpdateChore    UpdateKind = "chore"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	OrgID     string          `json:"orgId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// UpdateData 业务更新通知数据
type UpdateData struct {
	Kind    UpdateKind  `json:"kind"`    // 业务域：shopping/event/expense/chore
	Action  string      `json:"action"`  // created/updated/deleted 等
	Payload interface{} `json:"payload"` // 变更后的实体或ID
}

// Client 代表一个WebSocket客户端连接
type Client struct {
	ID     string
	UserID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	orgIDs map[string]bool // 已订阅的家庭组ID
	// 可订阅的家庭组ID列表，连接建立时根据成员关系确定
	Permissions []string
	mu          sync.RWMutex
	log         *zap.Logger
}

// Hub 管理所有WebSocket连接
//
// 订阅按家庭组分组：成员收到同组其他人触发的购物清单、
// 日程、开支、家务变更。
type Hub struct {
	clients        map[string]*Client
	orgs           map[string]map[string]*Client // orgID -> clientID -> Client
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *BroadcastMessage
	mu             sync.RWMutex
	log            *zap.Logger
	allowedOrigins []string
	jwtManager     *authjwt.Manager
	members        MemberStore
}

// BroadcastMessage 广播消息
type BroadcastMessage struct {
	OrgID   string
	Message *Message
}

// NewHub 创建WebSocket Hub
//
// 参数:
//   - allowedOrigins: 允许的 Origin 列表，用于 WebSocket 连接验证
//   - jwtManager: JWT 管理器，用于验证用户令牌
//   - members: 成员查询接口，用于确定可订阅的家庭组
func NewHub(allowedOrigins []string, jwtManager *authjwt.Manager, members MemberStore, logger *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hub{
		clients:        make(map[string]*Client),
		orgs:           make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *BroadcastMessage, 256),
		log:            logger,
		allowedOrigins: allowedOrigins,
		jwtManager:     jwtManager,
		members:        members,
	}
}

// Run 启动Hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Info("client registered",
				zap.String("id", client.ID),
				zap.String("user_id", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for orgID := range client.orgIDs {
					if clients, exists := h.orgs[orgID]; exists {
						delete(clients, client.ID)
						if len(clients) == 0 {
							delete(h.orgs, orgID)
						}
					}
				}
				delete(h.clients, client.ID)
				close(client.send)
				h.log.Info("client unregistered", zap.String("id", client.ID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastToOrg(msg.OrgID, msg.Message)

		case <-ticker.C:
			h.pingAllClients()
		}
	}
}

// BroadcastUpdate 向家庭组的在线成员推送业务变更
func (h *Hub) BroadcastUpdate(orgID string, kind UpdateKind, action string, payload interface{}) {
	data, err := json.Marshal(UpdateData{
		Kind:    kind,
		Action:  action,
		Payload: payload,
	})
	if err != nil {
		h.log.Error("failed to marshal update data", zap.Error(err))
		return
	}

	msg := &Message{
		Type:      MessageTypeUpdate,
		OrgID:     orgID,
		Data:      data,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- &BroadcastMessage{OrgID: orgID, Message: msg}:
	default:
		// 广播队列满时丢弃，实时通知不保证送达
		h.log.Warn("broadcast queue full, dropping update",
			zap.String("org_id", orgID),
			zap.String("kind", string(kind)))
	}
}

// broadcastToOrg 向订阅特定家庭组的客户端广播消息
func (h *Hub) broadcastToOrg(orgID string, msg *Message) {
	h.mu.RLock()
	clients := h.orgs[orgID]
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			// 客户端阻塞，跳过
			h.log.Warn("client channel blocked, skipping", zap.String("client_id", client.ID))
		}
	}
}

// pingAllClients 向所有客户端发送ping
func (h *Hub) pingAllClients() {
	msg := &Message{
		Type:      MessageTypePing,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.orgs = make(map[string]map[string]*Client)
}

// authenticateClient 认证客户端
//
// 只接受 JWT（URL参数或 Bearer 头），认证通过后按成员关系
// 计算可订阅的家庭组列表。
func (h *Hub) authenticateClient(c *gin.Context) (*Client, error) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
	}

	if token == "" {
		return nil, errors.New("missing authentication token")
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, errors.New("invalid authentication token")
	}

	orgs, err := h.members.ListOrganizationsByUserID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organizations: %w", err)
	}

	permissions := make([]string, len(orgs))
	for i, org := range orgs {
		permissions[i] = org.ID
	}

	client := &Client{
		ID:          generateClientID(),
		UserID:      claims.UserID,
		Permissions: permissions,
		orgIDs:      make(map[string]bool),
		log:         h.log,
	}

	h.log.Info("websocket authentication successful",
		zap.String("user_id", claims.UserID),
		zap.Int("org_count", len(permissions)))

	return client, nil
}

// HandleWebSocket 处理WebSocket连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		client, err := hub.authenticateClient(c)
		if err != nil {
			hub.log.Warn("websocket authentication failed",
				zap.Error(err),
				zap.String("remote_addr", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client.conn = conn
		client.hub = hub
		client.send = make(chan []byte, 256)

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", zap.Error(err))
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.subscribeOrg(msg.OrgID)
	case MessageTypeUnsubscribe:
		c.unsubscribeOrg(msg.OrgID)
	case MessageTypePong:
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	default:
		c.log.Warn("unknown message type", zap.String("type", string(msg.Type)))
	}
}

// subscribeOrg 订阅家庭组更新
func (c *Client) subscribeOrg(orgID string) {
	if orgID == "" {
		c.sendError("org ID is required")
		return
	}

	// 只有成员能订阅
	hasPermission := false
	for _, permOrgID := range c.Permissions {
		if permOrgID == orgID {
			hasPermission = true
			break
		}
	}

	if !hasPermission {
		c.log.Warn("subscription denied: not a member",
			zap.String("client_id", c.ID),
			zap.String("org_id", orgID),
			zap.String("user_id", c.UserID))
		c.sendError(fmt.Sprintf("no permission to access org: %s", orgID))
		return
	}

	c.mu.Lock()
	c.orgIDs[orgID] = true
	c.mu.Unlock()

	c.hub.mu.Lock()
	if c.hub.orgs[orgID] == nil {
		c.hub.orgs[orgID] = make(map[string]*Client)
	}
	c.hub.orgs[orgID][c.ID] = c
	c.hub.mu.Unlock()

	c.log.Info("subscribed to org",
		zap.String("client_id", c.ID),
		zap.String("org_id", orgID),
		zap.String("user_id", c.UserID))

	c.sendMessage(&Message{
		Type:      MessageTypeSubscribed,
		OrgID:     orgID,
		Timestamp: time.Now(),
	})
}

// unsubscribeOrg 取消订阅家庭组
func (c *Client) unsubscribeOrg(orgID string) {
	c.mu.Lock()
	delete(c.orgIDs, orgID)
	c.mu.Unlock()

	c.hub.mu.Lock()
	if clients, exists := c.hub.orgs[orgID]; exists {
		delete(clients, c.ID)
		if len(clients) == 0 {
			delete(c.hub.orgs, orgID)
		}
	}
	c.hub.mu.Unlock()

	c.log.Info("unsubscribed from org",
		zap.String("client_id", c.ID),
		zap.String("org_id", orgID))
}

// sendError 发送错误消息给客户端
func (c *Client) sendError(errMsg string) {
	c.sendMessage(&Message{
		Type:      MessageTypeError,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}

// sendMessage 发送消息给客户端
func (c *Client) sendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	default:
		c.log.Warn("client channel blocked", zap.String("client_id", c.ID))
	}
}

// generateClientID 生成客户端ID
func generateClientID() string {
	return time.Now().Format("20060102150405") + "-" + generateRandomString(8)
}

// generateRandomString 生成随机字符串
func generateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[time.Now().UnixNano()%int64(len(charset))]
	}
	return string(b)
}
