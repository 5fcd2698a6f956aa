package devserver

// Paths served by the dev server itself.
const (
	ReloadPath = "/__brick/reload"
	ClientPath = "/__brick/client.js"
)

// reloadClient connects to ReloadPath and reloads the page on every
// message. It reconnects once a second while the server is away.
const reloadClient = `const url = new URL('` + ReloadPath + `', location.href);
url.protocol = url.protocol === 'https:' ? 'wss:' : 'ws:';

function connect() {
  const socket = new WebSocket(url);
  socket.addEventListener('message', (event) => {
    if (event.data === '` + ReloadMessage + `') {
      location.reload();
    }
  });
  socket.addEventListener('close', () => setTimeout(connect, 1000));
}

connect();
`
