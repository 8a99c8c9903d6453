package composer

const grantedTemplate = `assert(getgenv, {{ printf "getgenv not found, %s could not be run." .ScriptName | lua }})
getgenv().{{ .Brand }} = {
  username = {{ lua .Username }},
  userid = {{ lua .UserID }},
  note = {{ lua .Note }},
  hwid = {{ lua .HWID }},
  script_name = {{ lua .ScriptName }},
{{- if .HasExpiry }}
  expiry = os.time() + {{ .ExpirySeconds }},
{{- end }}
  is_premium = {{ .Premium }},
}

`

const abortTemplate = `local message = {{ lua .Message }}
{{- if .Link }}
pcall(setclipboard, {{ lua .Link }})
{{- end }}
pcall(function()
  game:GetService("Players").LocalPlayer:Kick(message)
end)
error(message, 0)
`
